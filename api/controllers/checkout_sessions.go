package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/catering-checkout/api/responses"
	"github.com/angelmondragon/catering-checkout/api/validators"
	"github.com/angelmondragon/catering-checkout/internal/sessions"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	"github.com/angelmondragon/catering-checkout/pkg/types"
)

const dateLayout = "2006-01-02"

type startSessionRequest struct {
	CatererID      string                 `json:"caterer_id" validate:"required"`
	Cart           []cartItemRequest      `json:"cart" validate:"required,min=1,dive"`
	Addresses      []addressRequest       `json:"addresses" validate:"dive"`
	PaymentMethods []paymentMethodRequest `json:"payment_methods" validate:"dive"`
	TimeSlots      []timeSlotRequest      `json:"time_slots" validate:"dive"`
	Tip            decimal.Decimal        `json:"tip" validate:"gte=0"`
}

type cartItemRequest struct {
	ID        string          `json:"id" validate:"required"`
	DishID    string          `json:"dish_id"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Subtotal  decimal.Decimal `json:"subtotal" validate:"gte=0"`
	Caterer   catererRequest  `json:"caterer"`
}

type catererRequest struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type addressRequest struct {
	ID        string `json:"id"`
	Street    string `json:"street" validate:"required"`
	Apt       string `json:"apt"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	IsDefault bool   `json:"is_default"`
}

type paymentMethodRequest struct {
	ID        string `json:"id" validate:"required"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4" validate:"omitempty,len=4"`
	ExpMonth  int    `json:"exp_month" validate:"omitempty,min=1,max=12"`
	ExpYear   int    `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

type timeSlotRequest struct {
	ID       string `json:"id"`
	Label    string `json:"label" validate:"required"`
	Capacity int    `json:"capacity" validate:"min=0"`
	Booked   int    `json:"booked" validate:"min=0"`
}

type orderTypeRequest struct {
	OrderType string `json:"order_type" validate:"required,oneof=delivery pickup"`
}

type selectAddressRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

type selectPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type selectTimeSlotRequest struct {
	TimeSlot string `json:"time_slot" validate:"required"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type instructionsRequest struct {
	Instructions string `json:"instructions" validate:"max=500"`
}

// CheckoutStartSession opens a checkout session from the cart handoff.
func CheckoutStartSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload startSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Start(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func CheckoutGetSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, sessions.Service.Get)
}

// CheckoutCancelSession resets and discards the session.
func CheckoutCancelSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CheckoutSetOrderType(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *orderTypeRequest) (*sessions.View, error) {
		orderType, err := enums.ParseOrderType(payload.OrderType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order type must be delivery or pickup")
		}
		return svc.SetOrderType(ctx, id, orderType)
	})
}

func CheckoutSelectAddress(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *selectAddressRequest) (*sessions.View, error) {
		return svc.SelectAddress(ctx, id, payload.AddressID)
	})
}

func CheckoutAddAddress(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *addressRequest) (*sessions.View, error) {
		return svc.AddAddress(ctx, id, payload.toAddress())
	})
}

func CheckoutAddPaymentMethod(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *paymentMethodRequest) (*sessions.View, error) {
		return svc.AddPaymentMethod(ctx, id, payload.toPaymentMethod())
	})
}

func CheckoutSelectPaymentMethod(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *selectPaymentMethodRequest) (*sessions.View, error) {
		return svc.SelectPaymentMethod(ctx, id, payload.PaymentMethodID)
	})
}

func CheckoutSelectTimeSlot(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *selectTimeSlotRequest) (*sessions.View, error) {
		var date time.Time
		if payload.Date != "" {
			parsed, err := time.Parse(dateLayout, payload.Date)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD")
			}
			date = parsed
		}
		return svc.SelectTimeSlot(ctx, id, payload.TimeSlot, date)
	})
}

func CheckoutSetInstructions(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionBodyAction(svc, logg, func(ctx context.Context, id string, payload *instructionsRequest) (*sessions.View, error) {
		return svc.SetDeliveryInstructions(ctx, id, payload.Instructions)
	})
}

func CheckoutFetchQuote(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, sessions.Service.FetchQuote)
}

func CheckoutRefreshQuote(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, sessions.Service.RefreshQuote)
}

// CheckoutNext advances one step; leaving review places the order.
func CheckoutNext(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, sessions.Service.Next)
}

func CheckoutPrevious(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionAction(svc, logg, sessions.Service.Previous)
}

// CheckoutNotifications drains the session's pending user-facing messages.
func CheckoutNotifications(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notes, err := svc.Notifications(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notes)
	}
}

func sessionAction(svc sessions.Service, logg *logger.Logger, fn func(sessions.Service, context.Context, string) (*sessions.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := fn(svc, r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func sessionBodyAction[T any](svc sessions.Service, logg *logger.Logger, fn func(context.Context, string, *T) (*sessions.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload T
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := fn(r.Context(), sessionID, &payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func sessionIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return id, nil
}

func (p startSessionRequest) toInput() sessions.StartInput {
	input := sessions.StartInput{
		CatererID: p.CatererID,
		Tip:       p.Tip,
	}
	for _, item := range p.Cart {
		input.Cart = append(input.Cart, types.CartItem{
			ID:        item.ID,
			DishID:    item.DishID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
			Caterer: types.Caterer{
				ID:      item.Caterer.ID,
				Name:    item.Caterer.Name,
				Address: item.Caterer.Address,
			},
		})
	}
	for _, addr := range p.Addresses {
		input.Addresses = append(input.Addresses, addr.toAddress())
	}
	for _, method := range p.PaymentMethods {
		input.PaymentMethods = append(input.PaymentMethods, method.toPaymentMethod())
	}
	for _, slot := range p.TimeSlots {
		input.TimeSlots = append(input.TimeSlots, types.TimeSlot{
			ID:       slot.ID,
			Label:    slot.Label,
			Capacity: slot.Capacity,
			Booked:   slot.Booked,
		})
	}
	return input
}

func (a addressRequest) toAddress() types.Address {
	return types.Address{
		ID:        a.ID,
		Street:    a.Street,
		Apt:       a.Apt,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		IsDefault: a.IsDefault,
	}
}

func (p paymentMethodRequest) toPaymentMethod() types.PaymentMethod {
	return types.PaymentMethod{
		ID:        p.ID,
		Brand:     p.Brand,
		Last4:     p.Last4,
		ExpMonth:  p.ExpMonth,
		ExpYear:   p.ExpYear,
		IsDefault: p.IsDefault,
	}
}
