package lyrics

import (
	"errors"
	"strings"
	"testing"
)

type upperConverter struct{ fail bool }

func (u upperConverter) Convert(in string) (string, error) {
	if u.fail {
		return "", errors.New("no dictionary")
	}
	return strings.ToUpper(in), nil
}

func TestConvertText(t *testing.T) {
	if got := ConvertText(nil, "abc"); got != "abc" {
		t.Errorf("nil converter changed text: %q", got)
	}
	if got := ConvertText(upperConverter{}, "[00:01.00]abc"); got != "[00:01.00]ABC" {
		t.Errorf("got %q", got)
	}
	if got := ConvertText(upperConverter{fail: true}, "abc"); got != "abc" {
		t.Errorf("failed conversion should keep the original, got %q", got)
	}
}
