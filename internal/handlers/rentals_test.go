package handlers

import (
	"net/http"
	"testing"

	"arthings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rentalFixture struct {
	app          *testApp
	owner        *models.User
	renter       *models.User
	ownerCookie  *http.Cookie
	renterCookie *http.Cookie
	item         *models.Item
}

func newRentalFixture(t *testing.T) *rentalFixture {
	t.Helper()
	app := setupApp(t)
	owner, ownerCookie := app.login(t, "owner@example.com")
	renter, renterCookie := app.login(t, "renter@example.com")
	return &rentalFixture{
		app:          app,
		owner:        owner,
		renter:       renter,
		ownerCookie:  ownerCookie,
		renterCookie: renterCookie,
		item:         app.createItem(t, owner.ID, "Camera", 100),
	}
}

// requestRental books the fixture item for 2025-01-01..2025-01-03 and returns the rental id.
func (f *rentalFixture) requestRental(t *testing.T) string {
	t.Helper()
	w := f.app.do(t, http.MethodPost, "/api/rentals", map[string]interface{}{
		"productId": models.FormatID(models.ProductPrefix, f.item.ID),
		"startDate": "2025-01-01",
		"endDate":   "2025-01-03",
		"message":   "Weekend trip",
	}, f.renterCookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["rental"].(map[string]interface{})["id"].(string)
}

func (f *rentalFixture) setStatus(t *testing.T, rentalID, status string, cookie *http.Cookie) (int, string) {
	t.Helper()
	w := f.app.do(t, http.MethodPut, "/api/rentals/"+rentalID+"/status", map[string]string{"status": status}, cookie)
	if w.Code == http.StatusOK {
		return w.Code, ""
	}
	return w.Code, errorOf(t, w)
}

func TestCreateRentalSnapshotsPrice(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)

	w := f.app.do(t, http.MethodPut, "/api/products/"+models.FormatID(models.ProductPrefix, f.item.ID),
		map[string]interface{}{"price": 250}, f.ownerCookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.app.do(t, http.MethodGet, "/api/rentals/"+rentalID, nil, f.renterCookie)
	require.Equal(t, http.StatusOK, w.Code)
	rental := decode(t, w)["rental"].(map[string]interface{})
	assert.Equal(t, 3.0, rental["days"])
	assert.Equal(t, 100.0, rental["pricePerDay"])
	assert.Equal(t, 300.0, rental["totalPrice"])
	assert.Equal(t, "2025-01-01", rental["startDate"])
	assert.Equal(t, "2025-01-03", rental["endDate"])
	assert.Equal(t, "pending", rental["status"])

	product := rental["product"].(map[string]interface{})
	assert.Equal(t, 250.0, product["price"])
	assert.Nil(t, product["image"])
}

func TestCreateRentalPreconditions(t *testing.T) {
	f := newRentalFixture(t)
	productID := models.FormatID(models.ProductPrefix, f.item.ID)

	tests := []struct {
		name   string
		cookie *http.Cookie
		body   map[string]interface{}
		code   int
	}{
		{"own item", f.ownerCookie, map[string]interface{}{"productId": productID, "startDate": "2025-01-01", "endDate": "2025-01-02"}, http.StatusConflict},
		{"missing product", f.renterCookie, map[string]interface{}{"productId": "prod-9999", "startDate": "2025-01-01", "endDate": "2025-01-02"}, http.StatusNotFound},
		{"reversed dates", f.renterCookie, map[string]interface{}{"productId": productID, "startDate": "2025-01-05", "endDate": "2025-01-01"}, http.StatusBadRequest},
		{"bad date", f.renterCookie, map[string]interface{}{"productId": productID, "startDate": "tomorrow", "endDate": "2025-01-01"}, http.StatusBadRequest},
		{"missing dates", f.renterCookie, map[string]interface{}{"productId": productID}, http.StatusBadRequest},
		{"missing product id", f.renterCookie, map[string]interface{}{"startDate": "2025-01-01", "endDate": "2025-01-02"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.app.do(t, http.MethodPost, "/api/rentals", tt.body, tt.cookie)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := f.app.do(t, http.MethodGet, "/api/rentals", nil, f.renterCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["rentals"])
}

func TestCreateRentalAcceptsNumericItemID(t *testing.T) {
	f := newRentalFixture(t)

	w := f.app.do(t, http.MethodPost, "/api/rentals", map[string]interface{}{
		"itemId":    f.item.ID,
		"startDate": "2025-03-01T00:00:00Z",
		"endDate":   "2025-03-01T00:00:00Z",
	}, f.renterCookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1.0, decode(t, w)["rental"].(map[string]interface{})["days"])
}

func TestRentalStatusTransitions(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)

	code, msg := f.setStatus(t, rentalID, "approved", f.renterCookie)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Only the owner can set status to approved", msg)

	code, msg = f.setStatus(t, rentalID, "pending", f.ownerCookie)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid status", msg)

	code, _ = f.setStatus(t, rentalID, "completed", f.ownerCookie)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.setStatus(t, rentalID, "approved", f.ownerCookie)
	require.Equal(t, http.StatusOK, code)

	code, _ = f.setStatus(t, rentalID, "declined", f.ownerCookie)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.setStatus(t, rentalID, "completed", f.ownerCookie)
	require.Equal(t, http.StatusOK, code)

	code, _ = f.setStatus(t, rentalID, "cancelled", f.renterCookie)
	assert.Equal(t, http.StatusForbidden, code)

	w := f.app.do(t, http.MethodGet, "/api/rentals?role=owner", nil, f.ownerCookie)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["rentals"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0].(map[string]interface{})["status"])
}

func TestRenterCancels(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)

	code, _ := f.setStatus(t, rentalID, "cancelled", f.ownerCookie)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.setStatus(t, rentalID, "cancelled", f.renterCookie)
	assert.Equal(t, http.StatusOK, code)
}

func TestGetRentalRequiresParty(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)
	_, strangerCookie := f.app.login(t, "stranger@example.com")
	_, adminCookie := f.app.loginAdmin(t, "admin@example.com")

	assert.Equal(t, http.StatusForbidden, f.app.do(t, http.MethodGet, "/api/rentals/"+rentalID, nil, strangerCookie).Code)
	assert.Equal(t, http.StatusOK, f.app.do(t, http.MethodGet, "/api/rentals/"+rentalID, nil, f.ownerCookie).Code)
	assert.Equal(t, http.StatusOK, f.app.do(t, http.MethodGet, "/api/rentals/"+rentalID, nil, adminCookie).Code)
}

func TestRatingFlow(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)
	ownerID := models.FormatID(models.UserPrefix, f.owner.ID)
	renterID := models.FormatID(models.UserPrefix, f.renter.ID)

	rate := func(cookie *http.Cookie, to string, score int, comment string) (int, map[string]interface{}) {
		w := f.app.do(t, http.MethodPost, "/api/ratings", map[string]interface{}{
			"rentalId": rentalID, "toUserId": to, "score": score, "comment": comment,
		}, cookie)
		return w.Code, decode(t, w)
	}

	code, body := rate(f.ownerCookie, renterID, 5, "")
	assert.Equal(t, http.StatusBadRequest, code, "rental not completed yet")
	assert.Equal(t, "You can only rate after the rental is completed", body["error"])

	code, _ = f.setStatus(t, rentalID, "approved", f.ownerCookie)
	require.Equal(t, http.StatusOK, code)
	code, _ = f.setStatus(t, rentalID, "completed", f.ownerCookie)
	require.Equal(t, http.StatusOK, code)

	code, body = rate(f.ownerCookie, renterID, 5, "")
	require.Equal(t, http.StatusCreated, code, body)
	rating := body["rating"].(map[string]interface{})
	assert.Equal(t, renterID, rating["toUserId"])
	assert.Equal(t, 5.0, rating["score"])

	code, _ = rate(f.ownerCookie, renterID, 4, "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = rate(f.renterCookie, renterID, 4, "")
	assert.Equal(t, http.StatusBadRequest, code, "self rating")

	code, _ = rate(f.renterCookie, ownerID, 9, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = rate(f.renterCookie, ownerID, 4, "  Great camera  ")
	require.Equal(t, http.StatusCreated, code)

	w := f.app.do(t, http.MethodGet, "/api/ratings/user/"+ownerID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)
	assert.Equal(t, 4.0, summary["averageScore"])
	assert.Equal(t, 1.0, summary["totalCount"])
	received := summary["ratings"].([]interface{})
	require.Len(t, received, 1)
	assert.Equal(t, "Great camera", received[0].(map[string]interface{})["comment"])
	assert.Equal(t, "Camera", received[0].(map[string]interface{})["itemTitle"])

	w = f.app.do(t, http.MethodGet, "/api/ratings/rental/"+rentalID, nil, f.renterCookie)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode(t, w)
	assert.Len(t, listing["ratings"], 2)
	assert.Equal(t, true, listing["alreadyRatedOwner"])
	assert.Equal(t, false, listing["canRateOwner"])
	assert.Equal(t, false, listing["alreadyRatedRenter"])
}

func TestCanRate(t *testing.T) {
	f := newRentalFixture(t)
	rentalID := f.requestRental(t)
	path := "/api/ratings/rental/" + rentalID + "/can-rate"

	allFalse := `{"canRateOwner":false,"canRateRenter":false,"alreadyRatedOwner":false,"alreadyRatedRenter":false}`

	w := f.app.do(t, http.MethodGet, "/api/ratings/rental/rental-9999/can-rate", nil, f.renterCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, allFalse, w.Body.String())

	w = f.app.do(t, http.MethodGet, path, nil, f.renterCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, allFalse, w.Body.String(), "pending rental")

	f.setStatus(t, rentalID, "approved", f.ownerCookie)
	f.setStatus(t, rentalID, "completed", f.ownerCookie)

	w = f.app.do(t, http.MethodGet, path, nil, f.renterCookie)
	body := decode(t, w)
	assert.Equal(t, true, body["canRateOwner"])
	assert.Equal(t, false, body["canRateRenter"])
	assert.Equal(t, models.FormatID(models.UserPrefix, f.owner.ID), body["ownerId"])
	assert.Equal(t, "owner", body["ownerName"])

	w = f.app.do(t, http.MethodGet, path, nil, f.ownerCookie)
	body = decode(t, w)
	assert.Equal(t, false, body["canRateOwner"])
	assert.Equal(t, true, body["canRateRenter"])

	w = f.app.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, allFalse, w.Body.String(), "anonymous caller")

	_, strangerCookie := f.app.login(t, "stranger@example.com")
	w = f.app.do(t, http.MethodGet, path, nil, strangerCookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, allFalse, w.Body.String(), "caller outside the rental")
}
