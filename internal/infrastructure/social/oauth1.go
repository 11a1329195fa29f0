package social

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// oauthSigner produces OAuth 1.0a Authorization headers (HMAC-SHA1). Each
// call uses a fresh timestamp and nonce; signatures are single-use by
// construction.
type oauthSigner struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string

	nonce func() string
	now   func() time.Time
}

func newOAuthSigner(consumerKey, consumerSecret, token, tokenSecret string) *oauthSigner {
	return &oauthSigner{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		token:          token,
		tokenSecret:    tokenSecret,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
		now: time.Now,
	}
}

// authorize builds the Authorization header for a request. bodyParams must
// contain the form-encoded body parameters when the request is
// application/x-www-form-urlencoded, and be nil for JSON bodies, which are
// excluded from the signature base by the protocol.
func (s *oauthSigner) authorize(method, rawURL string, bodyParams url.Values) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_token":            s.token,
		"oauth_version":          "1.0",
	}

	signature := s.sign(method, parsed, oauthParams, bodyParams)
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, percentEncode(k), percentEncode(oauthParams[k])))
	}
	return "OAuth " + strings.Join(pairs, ", "), nil
}

func (s *oauthSigner) sign(method string, u *url.URL, oauthParams map[string]string, bodyParams url.Values) string {
	params := map[string][]string{}
	for k, vs := range u.Query() {
		params[k] = append(params[k], vs...)
	}
	for k, vs := range bodyParams {
		params[k] = append(params[k], vs...)
	}
	for k, v := range oauthParams {
		params[k] = append(params[k], v)
	}

	type pair struct{ k, v string }
	var encoded []pair
	for k, vs := range params {
		for _, v := range vs {
			encoded = append(encoded, pair{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i].k != encoded[j].k {
			return encoded[i].k < encoded[j].k
		}
		return encoded[i].v < encoded[j].v
	})

	parts := make([]string, 0, len(encoded))
	for _, p := range encoded {
		parts = append(parts, p.k+"="+p.v)
	}
	paramString := strings.Join(parts, "&")

	baseURL := u.Scheme + "://" + u.Host + u.Path
	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramString)
	signingKey := percentEncode(s.consumerSecret) + "&" + percentEncode(s.tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 5849 section 3.6 encoding, which is stricter
// than url.QueryEscape.
func percentEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
