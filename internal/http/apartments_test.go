package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

func TestGETApartments_FiltersAndSort(t *testing.T) {
	e := newTestEnv(t)

	post := func(a domain.Apartment) {
		resp, body := e.do(t, http.MethodPost, "/apartments", UpsertApartmentsRequest{Apartments: []domain.Apartment{a}})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	sale := func(price float64, pyeong float64) []domain.PriceRow {
		return []domain.PriceRow{{TransactionType: domain.TransactionSale, Pyeong: pyeong, SalePrice: f64(price)}}
	}

	post(domain.Apartment{ComplexNo: 1, ComplexName: "A", Sigungu: "서울 송파구", Prices: sale(62000, 24)})
	post(domain.Apartment{ComplexNo: 2, ComplexName: "B", Sigungu: "서울 송파구 잠실동", Prices: sale(98000, 34)})
	post(domain.Apartment{ComplexNo: 3, ComplexName: "C", Sigungu: "서울 마포구", Prices: sale(105000, 34)})

	// sigungu contains, min_price, sort desc
	resp, body := e.do(t, http.MethodGet, "/apartments?sigungu=송파&min_price=60000&sort=price_desc&limit=20&offset=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	got := decodeBody[ApartmentsListResponse](t, body)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "B", got.Items[0].ComplexName)
	assert.Equal(t, "9억 8,000만원", got.Items[0].SaleDisplay)
	assert.Equal(t, 20, got.Limit)

	resp, body = e.do(t, http.MethodGet, "/apartments?max_price=100000&limit=1&offset=1&sort=price_asc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeBody[ApartmentsListResponse](t, body)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "B", got.Items[0].ComplexName)
}

func TestGETApartments_BadParams(t *testing.T) {
	e := newTestEnv(t)

	for _, q := range []string{"min_price=cheap", "max_price=-5", "purpose=flip", "sort=random"} {
		resp, _ := e.do(t, http.MethodGet, "/apartments?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestGETApartmentByComplexNo(t *testing.T) {
	e := newTestEnv(t)
	e.seed(t)

	resp, body := e.do(t, http.MethodGet, "/apartments/101", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apt := decodeBody[domain.Apartment](t, body)
	assert.Equal(t, "헬리오시티", apt.ComplexName)
	require.Len(t, apt.Prices, 1)

	resp, _ = e.do(t, http.MethodGet, "/apartments/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/apartments/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPOSTApartments_Invalid(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/apartments", UpsertApartmentsRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/apartments", UpsertApartmentsRequest{
		Apartments: []domain.Apartment{{ComplexName: "번호 없음"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decodeBody[errorResponse](t, body).Error)
}
