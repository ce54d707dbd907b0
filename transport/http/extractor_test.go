package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/internal/mocks"
	"github.com/layer-3/quill/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newExtractorContext(cookie *http.Cookie) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	c.Request = req
	return c
}

func TestAuthenticate_Anonymous(t *testing.T) {
	identities := new(mocks.IdentityStore)
	verifier := &stubVerifier{}
	e := NewCredentialExtractor(verifier, identities, "access_token", logging.Nop())

	for name, cookie := range map[string]*http.Cookie{
		"no cookie":  nil,
		"empty":      {Name: "access_token", Value: ""},
		"whitespace": {Name: "access_token", Value: "%20%20"},
		"forged":     {Name: "access_token", Value: "forged"},
	} {
		c := newExtractorContext(cookie)
		p, ok := e.Authenticate(c)
		assert.False(t, ok, name)
		assert.Nil(t, p, name)
	}

	assert.Equal(t, 1, verifier.calls, "only the forged cookie reaches the verifier")
	identities.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestAuthenticate_Memoized(t *testing.T) {
	identities := new(mocks.IdentityStore)
	identities.On("FindByID", mock.Anything, "user-1").
		Return(&core.Identity{ID: "user-1", IsActive: true}, nil).Once()
	verifier := &stubVerifier{}
	e := NewCredentialExtractor(verifier, identities, "access_token", logging.Nop())

	c := newExtractorContext(&http.Cookie{Name: "access_token", Value: testAccessToken})
	for i := 0; i < 3; i++ {
		p, ok := e.Authenticate(c)
		require.True(t, ok)
		assert.Equal(t, "user-1", p.Identity.ID)
		assert.Equal(t, testAccessToken, p.Token)
	}

	p, ok := CurrentPrincipal(c)
	require.True(t, ok)
	assert.Equal(t, "user-1", p.Identity.ID)
	assert.Equal(t, 1, verifier.calls)
	identities.AssertExpectations(t)
}

func TestAuthenticate_NegativeResultMemoized(t *testing.T) {
	verifier := &stubVerifier{}
	e := NewCredentialExtractor(verifier, new(mocks.IdentityStore), "access_token", logging.Nop())

	c := newExtractorContext(&http.Cookie{Name: "access_token", Value: "forged"})
	_, ok := e.Authenticate(c)
	assert.False(t, ok)
	_, ok = e.Authenticate(c)
	assert.False(t, ok)
	_, ok = CurrentPrincipal(c)
	assert.False(t, ok)

	assert.Equal(t, 1, verifier.calls)
}

func TestAuthenticate_UnusableIdentity(t *testing.T) {
	tests := []struct {
		name     string
		identity *core.Identity
		err      error
	}{
		{"not found", nil, core.ErrIdentityNotFound},
		{"lookup failed", nil, errors.New("db down")},
		{"inactive", &core.Identity{ID: "user-1", IsActive: false}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identities := new(mocks.IdentityStore)
			identities.On("FindByID", mock.Anything, "user-1").Return(tt.identity, tt.err)
			e := NewCredentialExtractor(&stubVerifier{}, identities, "access_token", logging.Nop())

			c := newExtractorContext(&http.Cookie{Name: "access_token", Value: testAccessToken})
			p, ok := e.Authenticate(c)
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestCurrentPrincipal_WithoutAuthenticate(t *testing.T) {
	c := newExtractorContext(nil)
	_, ok := CurrentPrincipal(c)
	assert.False(t, ok)
}
