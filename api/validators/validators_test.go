package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
)

type selectionBody struct {
	Action   string `json:"action" validate:"required,oneof=toggle all clear"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

type optionsBody struct {
	AcceptPartial bool `json:"accept_partial"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"flip"}`))
	var body selectionBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be one of: toggle all clear", details["action"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"all","extra":1}`))
	var body selectionBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	var empty optionsBody
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeOptionalJSONBody(req, &empty))
	assert.False(t, empty.AcceptPartial)

	var blank optionsBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeOptionalJSONBody(req, &blank))

	var set optionsBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"accept_partial":true}`))
	require.NoError(t, DecodeOptionalJSONBody(req, &set))
	assert.True(t, set.AcceptPartial)

	var bad optionsBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"accept_partial":"yes"}`))
	assert.Error(t, DecodeOptionalJSONBody(req, &bad))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20", nil)
	v, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err = ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(req, "limit", 50, 1, 100)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	_, err = ParseQueryInt(req, "limit", 50, 1, 100)
	require.Error(t, err)
	assert.Equal(t, "limit must be a whole number", pkgerrors.As(err).Message())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString(" abc ", 0))
	assert.Equal(t, "Harbor Market", SanitizeString("Harbor\x00 Market\n", 0))
	assert.Equal(t, "青果", SanitizeString("青果市場", 2))
}

type expiryListBody struct {
	Expiries []struct {
		LotNumber string `json:"lot_number" validate:"max=4"`
	} `json:"expiries" validate:"dive"`
}

func TestDecodeJSONBodyNamesNestedFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"expiries":[{"lot_number":"A1"},{"lot_number":"TOO-LONG"}]}`))
	var body expiryListBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at most 4 characters", details["expiries[1].lot_number"])
}

func TestDecodeJSONBodyRejectsTrailingAndMissingBodies(t *testing.T) {
	var body selectionBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"all"}{"action":"clear"}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	huge := `{"action":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	var body selectionBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge)), &body)
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Message(), "exceeds")
}
