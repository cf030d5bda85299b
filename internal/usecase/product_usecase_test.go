package usecase

import (
	"context"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProductUsecase_GetProductDetail_Inactive_NotFound(t *testing.T) {
	products := new(mockProductRepo)
	uc := NewProductUsecase(products)

	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: false}, nil)

	_, err := uc.GetProductDetail(context.Background(), 1)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestProductUsecase_GetProductDetail_Missing_NotFound(t *testing.T) {
	products := new(mockProductRepo)
	uc := NewProductUsecase(products)

	products.On("FindByID", mock.Anything, int64(99)).Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.GetProductDetail(context.Background(), 99)

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestProductUsecase_ListPublicProducts_PriceRangeValidation(t *testing.T) {
	products := new(mockProductRepo)
	uc := NewProductUsecase(products)

	neg := price("-1.00")
	_, err := uc.ListPublicProducts(context.Background(), ListProductsInput{Page: 1, Limit: 20, MinPrice: &neg})
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	//min > max
	lo := price("10.00")
	hi := price("5.00")
	_, err = uc.ListPublicProducts(context.Background(), ListProductsInput{Page: 1, Limit: 20, MinPrice: &lo, MaxPrice: &hi})
	he, ok = AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "min_price must be <= max_price", he.Message)
}

func TestProductUsecase_AdminCreateProduct_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   AdminProductInput
		msg  string
	}{
		{"EmptyName", AdminProductInput{Name: "  ", Price: price("10.00"), Stock: 1}, "name required"},
		{"ZeroPrice", AdminProductInput{Name: "apple", Price: price("0"), Stock: 1}, "price must be > 0"},
		{"NegativePrice", AdminProductInput{Name: "apple", Price: price("-5.00"), Stock: 1}, "price must be > 0"},
		{"NegativeStock", AdminProductInput{Name: "apple", Price: price("10.00"), Stock: -1}, "stock must be >= 0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			products := new(mockProductRepo)
			uc := NewProductUsecase(products)

			_, err := uc.AdminCreateProduct(context.Background(), 1, tc.in)

			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Status)
			assert.Equal(t, tc.msg, he.Message)

			products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProductUsecase_AdminDeleteProduct_SoftDelete(t *testing.T) {
	products := new(mockProductRepo)
	uc := NewProductUsecase(products)

	products.On("SoftDelete", mock.Anything, int64(5)).Return(nil)

	err := uc.AdminDeleteProduct(context.Background(), 1, 5)
	require.NoError(t, err)

	products.AssertCalled(t, "SoftDelete", mock.Anything, int64(5))
}
