package routes

import (
	"context"
	"errors"
	"net/http"

	"storefront/api"
	"storefront/cart"
	"storefront/checkout"
	"storefront/utils"
)

// statusOf maps an error to the HTTP status and the message shown to the
// user.
func statusOf(err error) (int, string) {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		return http.StatusUnauthorized, "Please log in"
	case errors.Is(err, api.ErrValidation),
		errors.Is(err, utils.ErrBadBody),
		errors.Is(err, cart.ErrNoIdentity),
		errors.Is(err, cart.ErrNoProductID),
		errors.Is(err, cart.ErrNegativePrice):
		return http.StatusBadRequest, api.MessageOf(err, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, checkout.MsgEmptyCart
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict, checkout.MsgInProgress
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status >= 500 || status < 400 {
			status = http.StatusBadGateway
		}
		return status, api.MessageOf(err, api.GenericMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, api.GenericMessage
	default:
		return http.StatusBadGateway, api.GenericMessage
	}
}

func respondErr(w http.ResponseWriter, err error) {
	status, msg := statusOf(err)
	utils.RespondWithError(w, status, msg)
}
