package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchKey(t *testing.T) {
	tests := map[string]string{
		"Şule Yılmaz":       "şule yilmaz",
		"ŞULE YILMAZ":       "şule yilmaz",
		"  şule   yılmaz  ": "şule yilmaz",
		"İSMAİL":            "ismail",
		"ÇAĞRI ÖZGÜR":       "çağri özgür",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SearchKey(in), "input %q", in)
	}
}

func TestAuthor_BeforeSaveFillsSearchName(t *testing.T) {
	surname := "PAMUK"
	a := &Author{Name: "Orhan", Surname: &surname}
	assert.NoError(t, a.BeforeSave(nil))
	assert.Equal(t, "orhan pamuk", a.SearchName)

	p := &Publisher{Name: "İLETİŞİM YAYINLARI"}
	assert.NoError(t, p.BeforeSave(nil))
	assert.Equal(t, "iletişim yayinlari", p.SearchName)
}
