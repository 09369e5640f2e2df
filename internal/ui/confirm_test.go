package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompterConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		"  y  \n": true,
		"n\n":     false,
		"\n":      false,
		"maybe\n": false,
		"y":       true,
		"":        false,
	}
	for in, want := range cases {
		var out bytes.Buffer
		p := Prompter{In: strings.NewReader(in), Out: &out}
		assert.Equal(t, want, p.Confirm("Send transaction?"), "%q", in)
		assert.Contains(t, out.String(), "Send transaction?")
		assert.Contains(t, out.String(), "[y/N]")
	}
}

func TestPrompterConfirmDanger(t *testing.T) {
	var out bytes.Buffer
	p := Prompter{In: strings.NewReader("yes\n"), Out: &out}
	assert.True(t, p.ConfirmDanger("Remove wallet main?"))
	assert.Contains(t, out.String(), "⚠ Remove wallet main?")
}
