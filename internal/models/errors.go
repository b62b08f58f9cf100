package models

import "errors"

var (
	ErrNoRecord           = errors.New("models: no matching record found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidCredentials = errors.New("models: invalid credentials")
)
