package rest

import (
	"errors"
	"fmt"
)

var errInternal = errors.New("internal error")

type badParamError struct {
	name  string
	value string
}

func (that *badParamError) Error() string {
	return fmt.Sprintf("invalid %s: %q", that.name, that.value)
}

func isBadParam(err error) bool {
	var target *badParamError
	return errors.As(err, &target)
}
