package mail

import (
	"bytes"
	"html/template"
)

const (
	verificationSubject  = "Hesabını onayla"
	passwordResetSubject = "Kitaplık şifreni sıfırla"
)

var (
	verificationTemplate = template.Must(template.New("verification").Parse(
		`<p>Merhaba {{.Username}},</p>` +
			`<p>Kitaplık hesabını onaylamak için <a href="{{.Link}}">buraya tıkla</a>.</p>` +
			`<p>Bağlantı 5 dakika geçerlidir.</p>`))

	passwordResetTemplate = template.Must(template.New("reset").Parse(
		`<p><a href="{{.Link}}">Şifreni sıfırlamak için buraya tıkla</a>.</p>` +
			`<p>Bu isteği sen yapmadıysan bu e-postayı yok sayabilirsin.</p>`))
)

func renderVerification(username, link string) (string, error) {
	var buf bytes.Buffer
	err := verificationTemplate.Execute(&buf, struct{ Username, Link string }{username, link})
	return buf.String(), err
}

func renderPasswordReset(link string) (string, error) {
	var buf bytes.Buffer
	err := passwordResetTemplate.Execute(&buf, struct{ Link string }{link})
	return buf.String(), err
}
