package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
)

// Known-answer vector from the OAuth 1.0a signing walkthrough in the
// platform documentation.
func TestOAuthSignatureKnownVector(t *testing.T) {
	t.Parallel()

	signer := newOAuthSigner(
		"xvz1evFS4wEEPTGEFPHBog",
		"kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		"370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	)
	signer.nonce = func() string { return "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg" }
	signer.now = func() time.Time { return time.Unix(1318622958, 0) }

	form := url.Values{}
	form.Set("status", "Hello Ladies + Gentlemen, a signed OAuth request!")

	header, err := signer.authorize(
		http.MethodPost,
		"https://api.twitter.com/1.1/statuses/update.json?include_entities=true",
		form,
	)
	require.NoError(t, err)
	assert.Contains(t, header, `oauth_signature="hCtSmYh%2BiHYCEqBWrE7C7hYmtUk%3D"`)
}

func TestOAuthNonceAndTimestampAreFreshPerRequest(t *testing.T) {
	t.Parallel()

	signer := newOAuthSigner("ck", "cs", "tk", "ts")

	h1, err := signer.authorize(http.MethodPost, "https://example.com/a", nil)
	require.NoError(t, err)
	h2, err := signer.authorize(http.MethodPost, "https://example.com/a", nil)
	require.NoError(t, err)

	assert.NotEqual(t, extractParam(h1, "oauth_nonce"), extractParam(h2, "oauth_nonce"))
	assert.NotEqual(t, extractParam(h1, "oauth_signature"), extractParam(h2, "oauth_signature"))
}

func extractParam(header, name string) string {
	for _, part := range strings.Split(header, ", ") {
		if strings.Contains(part, name+"=") {
			return part
		}
	}
	return ""
}

func TestPercentEncode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ladies%20%2B%20Gentlemen", percentEncode("Ladies + Gentlemen"))
	assert.Equal(t, "safe-_.~", percentEncode("safe-_.~"))
	assert.Equal(t, "%E2%98%83", percentEncode("☃"))
}

// 1x1 PNG; http.DetectContentType sniffs it as image/png.
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00,
}

func newTestTwitter(t *testing.T, imageBody []byte) (*TwitterPublisher, string, *int) {
	t.Helper()

	uploadCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		// Deliberately wrong header: the publisher must sniff the bytes.
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(imageBody)
	})
	mux.HandleFunc("/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		uploadCalls++
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostForm.Get("media_data"))
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		_ = json.NewEncoder(w).Encode(map[string]string{"media_id_string": "m-123"})
	})
	mux.HandleFunc("/tweets", func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		var payload struct {
			Text  string `json:"text"`
			Media struct {
				MediaIDs []string `json:"media_ids"`
			} `json:"media"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, []string{"m-123"}, payload.Media.MediaIDs)
		require.LessOrEqual(t, len([]rune(payload.Text)), 280)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "t-456"}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	pub := NewTwitterPublisher(config.TwitterConfig{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessToken:    "tk",
		AccessSecret:   "ts",
		UploadBaseURL:  server.URL,
		APIBaseURL:     server.URL,
		CaptionLimit:   280,
	}, nil)

	return pub, server.URL, &uploadCalls
}

func TestTwitterPublishFlow(t *testing.T) {
	pub, base, uploadCalls := newTestTwitter(t, pngBytes)

	artifact := domain.Artifact{
		ImageURL: base + "/image.png",
		Caption:  "Actor X arrested in LA",
		TagBlock: "#news",
	}

	id, err := pub.Publish(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, "t-456", id)
	assert.Equal(t, 1, *uploadCalls)
}

func TestTwitterRejectsNonImageBytes(t *testing.T) {
	pub, base, uploadCalls := newTestTwitter(t, []byte("<html>not an image</html>"))

	artifact := domain.Artifact{ImageURL: base + "/image.png", Caption: "x"}

	_, err := pub.Publish(context.Background(), artifact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
	assert.Zero(t, *uploadCalls, "upload must not run for unsniffable bytes")
}

func TestTwitterRequiresCredentials(t *testing.T) {
	pub := NewTwitterPublisher(config.TwitterConfig{}, nil)

	_, err := pub.Publish(context.Background(), domain.Artifact{ImageURL: "http://x/y.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}
