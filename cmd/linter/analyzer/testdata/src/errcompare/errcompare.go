package errcompare

import (
	"errors"
	"io"
	"net"
)

var ErrMissing = errors.New("missing")

func Check(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF { // want "errors must be compared with errors.Is, not =="
		return true
	}
	if err != ErrMissing { // want "errors must be compared with errors.Is, not !="
		return false
	}
	return errors.Is(err, ErrMissing)
}

func CheckNet(err net.Error, target error) bool {
	return err == target // want "errors must be compared with errors.Is, not =="
}

func NotErrors(a, b string, x, y any) bool {
	return a == b || x == y
}
