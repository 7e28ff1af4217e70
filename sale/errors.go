package sale

import "errors"

var (
	ErrUnauthorized         = errors.New("sale: unauthorized")
	ErrSKUExists            = errors.New("sale: sku already exists")
	ErrSKUNotFound          = errors.New("sale: sku not found")
	ErrInsufficientStock    = errors.New("sale: insufficient stock")
	ErrPaymentFailed        = errors.New("sale: payment failed")
	ErrInvalidSigner        = errors.New("sale: invalid signer")
	ErrInvalidPreviousIndex = errors.New("sale: invalid previous index")
	ErrPaused               = errors.New("sale: paused")
	ErrNotPaused            = errors.New("sale: not paused")
	ErrPriceOverflow        = errors.New("sale: price overflow")

	errNilBackend = errors.New("sale: backend not configured")
)
