package service

import "errors"

var (
	ErrCoffeeNotFound = errors.New("coffee not found")
	ErrNoCoffee       = errors.New("no coffee in database")
	ErrCoffeeInUse    = errors.New("coffee still has cups")
	ErrCupNotFound    = errors.New("cup not found")
	ErrInvalidField   = errors.New("invalid field")
)
