package rental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransmissionCode(t *testing.T) {
	cases := []struct {
		text string
		id   int
		want string
	}{
		{text: "MT", want: "MT"},
		{text: "at", want: "AT"},
		{text: "Transmision manual", want: "MT"},
		{text: "Automatica", want: "AT"},
		{text: "cvt", want: "CVT"},
		{text: "", id: 1, want: "MT"},
		{text: "", id: 2, want: "AT"},
		{text: "", id: 3, want: "CVT"},
		{text: "", id: 9, want: ""},
		{text: "DCT", want: "DCT"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, TransmissionCode(tc.text, tc.id), "%q/%d", tc.text, tc.id)
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusConfirmed, ParseStatus("CONFIRMADA"))
	assert.Equal(t, StatusCancelled, ParseStatus("cancelled"))
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus("Pendiente"))
	assert.True(t, ParseStatus("Confirmada").Confirmed())
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Ana Perez", User{FirstName: "Ana", LastName: "Perez"}.FullName())
	assert.Equal(t, "Ana", User{FirstName: "Ana"}.FullName())
	assert.Equal(t, "Toyota Corolla", Vehicle{Brand: "Toyota", Model: "Corolla"}.DisplayName())
	assert.Equal(t, "Corolla", Vehicle{Model: "Corolla"}.DisplayName())
}
