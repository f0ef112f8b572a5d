package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShippingCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default is L", []string{"shipping"}, "770\n"},
		{"size code", []string{"shipping", "--size", "m"}, "455\n"},
		{"inferred from name", []string{"shipping", "--name", "DVD box set"}, "230\n"},
		{"heavy item", []string{"shipping", "--size", "S", "--weight", "12kg"}, "1570\n"},
		{"full width weight", []string{"shipping", "--weight", "２ｋｇ"}, "770\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShippingCmd_BadWeight(t *testing.T) {
	t.Parallel()
	_, err := run(t, "shipping", "--weight", "heavy")
	assert.ErrorContains(t, err, "cannot read weight")
}

func TestProfitCmd(t *testing.T) {
	t.Parallel()

	got, err := run(t, "profit", "2800", "980", "455")
	require.NoError(t, err)
	assert.Equal(t, "1085\n", got)

	got, err = run(t, "profit", "1000", "1000", "230")
	require.NoError(t, err)
	assert.Equal(t, "-330\n", got)

	_, err = run(t, "profit", "2800", "abc", "455")
	assert.ErrorContains(t, err, "argument 2")
}

func TestWeightCmd(t *testing.T) {
	t.Parallel()

	got, err := run(t, "weight", "850")
	require.NoError(t, err)
	assert.Equal(t, "0.850\n", got)

	_, err = run(t, "weight", "abc")
	assert.Error(t, err)
}

func TestArchiveKeyCmd(t *testing.T) {
	t.Parallel()

	got, err := run(t, "archive", "key", "abc", "--date", "2026-03-01", "--prefix", "p")
	require.NoError(t, err)
	assert.Equal(t, "p/2026/03/01/abc.json.zst\n", got)
}

func TestPrintAnalysis(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, printAnalysis(cmd, &vision.Analysis{Name: "Nintendo Switch", Keywords: []string{"Switch"}}))
	assert.Contains(t, out.String(), `"name": "Nintendo Switch"`)
	assert.True(t, strings.HasSuffix(out.String(), "shipping_yen: 1070\n"))
}

func TestImageMIME(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", imageMIME("photo.PNG", nil))
	assert.Equal(t, "image/jpeg", imageMIME("photo.jpeg", nil))
	assert.Equal(t, "image/png", imageMIME("photo", []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, "image/jpeg", imageMIME("photo", []byte("not an image")))
}
