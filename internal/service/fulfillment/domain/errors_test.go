package domain

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fieldErr struct{ msg string }

func (e *fieldErr) Error() string               { return e.msg }
func (e *fieldErr) Fields() map[string][]string { return map[string][]string{"pincode": {e.msg}} }

func TestKindHTTPStatus(t *testing.T) {
	cases := map[ErrorKind]int{
		KindValidation:     http.StatusBadRequest,
		KindPrecondition:   http.StatusBadRequest,
		KindConflict:       http.StatusConflict,
		KindNotServiceable: http.StatusBadRequest,
		KindCarrier:        http.StatusInternalServerError,
		KindAuth:           http.StatusInternalServerError,
		KindNotFound:       http.StatusNotFound,
		KindWebhookAuth:    http.StatusUnauthorized,
		KindTimeout:        http.StatusGatewayTimeout,
		KindInternal:       http.StatusInternalServerError,
		KindUnknown:        http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.HTTPStatus(), k.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := E(KindConflict, "CreateShipment", "duplicate")
	wrapped := errors.Wrap(base, "outer")
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("again: %w", wrapped)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestCarrierFailure(t *testing.T) {
	e := CarrierFailure("CreateShipment", "awb", errors.New("Pincode not serviceable"))
	assert.Equal(t, KindNotServiceable, e.Kind)
	assert.Equal(t, "awb", e.Step)
	assert.Equal(t, "awb", StepOf(errors.Wrap(e, "ctx")))

	e = CarrierFailure("CreateShipment", "pickup", errors.New("internal server error"))
	assert.Equal(t, KindCarrier, e.Kind)

	e = CarrierFailure("CreateShipment", "label", Wrap(KindTimeout, "generate_label", errors.New("deadline")))
	assert.Equal(t, KindTimeout, e.Kind, "existing classification is preserved")

	e = CarrierFailure("CreateShipment", "awb", &fieldErr{msg: "delivery pincode invalid"})
	assert.Equal(t, KindNotServiceable, e.Kind)
	assert.Equal(t, []string{"delivery pincode invalid"}, e.Fields["pincode"])
}

func TestIsNotServiceableMessage(t *testing.T) {
	for _, msg := range []string{"Pincode not serviceable", "NO COURIER available", "Destination is non serviceable", "route not servicable"} {
		assert.True(t, IsNotServiceableMessage(msg), msg)
	}
	assert.False(t, IsNotServiceableMessage("Invalid token"))
}
