package crawler

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

const signatureDateLayout = "2006-01-02 15:04:05"

// HMACSigner signs requests with the access-key/date/signature header triple
// the upstream booking API expects.
type HMACSigner struct {
	AccessKey string
	SecretKey string
	Now       func() time.Time
}

func (s HMACSigner) Sign(req *http.Request, method, path string) error {
	if s.AccessKey == "" || s.SecretKey == "" {
		return errors.New("missing upstream access or secret key")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	date := now().UTC().Format(signatureDateLayout)

	mac := hmac.New(sha1.New, []byte(s.SecretKey))
	mac.Write([]byte(date + s.AccessKey + method + path))

	req.Header.Set("X-Bokun-AccessKey", s.AccessKey)
	req.Header.Set("X-Bokun-Date", date)
	req.Header.Set("X-Bokun-Signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return nil
}
