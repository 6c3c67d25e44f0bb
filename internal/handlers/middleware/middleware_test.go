package middleware_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/handlers/middleware"
	"github.com/ammerola/stockledger/internal/pkg/logger"
	"github.com/ammerola/stockledger/test/helpers"
)

func decodeError(t *testing.T, body io.Reader) middleware.ErrorBody {
	t.Helper()
	var e middleware.ErrorBody
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

func TestRequestID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, ok := r.Context().Value(logger.ContextKeyRequestID).(string)
		assert.True(t, ok)
		assert.NotEmpty(t, requestID)

		w.WriteHeader(http.StatusOK)
	})

	wrapped := middleware.RequestID(handler)

	tests := []struct {
		name              string
		existingRequestID string
		validateResponse  func(*testing.T, *http.Response)
	}{
		{
			name:              "generates_new_request_id",
			existingRequestID: "",
			validateResponse: func(t *testing.T, resp *http.Response) {
				requestID := resp.Header.Get("X-Request-ID")
				assert.NotEmpty(t, requestID)
				assert.Len(t, requestID, 36) // UUID length
			},
		},
		{
			name:              "uses_existing_request_id",
			existingRequestID: "existing-id-123",
			validateResponse: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, "existing-id-123", resp.Header.Get("X-Request-ID"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.existingRequestID != "" {
				req.Header.Set("X-Request-ID", tt.existingRequestID)
			}
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			tt.validateResponse(t, w.Result())
		})
	}
}

func TestLogger(t *testing.T) {
	l := logger.SetupLogger("error", "json")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Context().Value(logger.ContextKeyTraceID))
		assert.Equal(t, "/api/v1/stock", r.Context().Value(logger.ContextKeyPath))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	})

	wrapped := middleware.Chain(handler, middleware.RequestID, middleware.Logger(l))

	req := httptest.NewRequest("GET", "/api/v1/stock", nil)
	req.Header.Set("X-Request-ID", "test-123")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test response", w.Body.String())
	assert.Equal(t, "test-123", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestRecovery(t *testing.T) {
	log := helpers.TestLogger()

	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "recovers_from_panic",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic("test panic")
			}),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error",
		},
		{
			name: "passes_through_normal_response",
			handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("normal response"))
			}),
			expectedStatus: http.StatusOK,
			expectedBody:   "normal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := middleware.Chain(tt.handler, middleware.RequestID, middleware.Recovery(log))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("X-Request-ID", "test-123")
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestRateLimit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Allow 2 requests per second
	wrapped := middleware.RateLimit(2, time.Second)(handler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, w.Body).Code)

	// Different IP should work
	req.RemoteAddr = "192.168.1.1:5678"
	w = httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		requestMethod  string
		preflight      bool
		expectedStatus int
		checkHeaders   func(*testing.T, http.Header)
	}{
		{
			name:           "allows_wildcard_origin",
			allowedOrigins: []string{"*"},
			requestOrigin:  "https://till.example.com",
			requestMethod:  "GET",
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Equal(t, "https://till.example.com", headers.Get("Access-Control-Allow-Origin"))
			},
		},
		{
			name:           "allows_specific_origin",
			allowedOrigins: []string{"https://till.example.com", "https://backoffice.example.com"},
			requestOrigin:  "https://backoffice.example.com",
			requestMethod:  "GET",
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Equal(t, "https://backoffice.example.com", headers.Get("Access-Control-Allow-Origin"))
			},
		},
		{
			name:           "handles_preflight_request",
			allowedOrigins: []string{"*"},
			requestOrigin:  "https://till.example.com",
			requestMethod:  "OPTIONS",
			preflight:      true,
			expectedStatus: http.StatusNoContent,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Equal(t, "https://till.example.com", headers.Get("Access-Control-Allow-Origin"))
				assert.Contains(t, headers.Get("Access-Control-Allow-Headers"), "Idempotency-Key")
			},
		},
		{
			name:           "exposes_location_for_async_exports",
			allowedOrigins: []string{"https://backoffice.example.com"},
			requestOrigin:  "https://backoffice.example.com",
			requestMethod:  "POST",
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Contains(t, headers.Get("Access-Control-Expose-Headers"), "Location")
				assert.Equal(t, "Origin", headers.Get("Vary"))
			},
		},
		{
			name:           "preflight_from_unallowed_origin_gets_no_grants",
			allowedOrigins: []string{"https://allowed.com"},
			requestOrigin:  "https://notallowed.com",
			requestMethod:  "OPTIONS",
			preflight:      true,
			expectedStatus: http.StatusNoContent,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Empty(t, headers.Get("Access-Control-Allow-Methods"))
			},
		},
		{
			name:           "blocks_unallowed_origin",
			allowedOrigins: []string{"https://allowed.com"},
			requestOrigin:  "https://notallowed.com",
			requestMethod:  "GET",
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, headers http.Header) {
				assert.Empty(t, headers.Get("Access-Control-Allow-Origin"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := middleware.CORS(tt.allowedOrigins)(handler)

			req := httptest.NewRequest(tt.requestMethod, "/test", nil)
			req.Header.Set("Origin", tt.requestOrigin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkHeaders(t, w.Header())
		})
	}
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name           string
		timeout        time.Duration
		handlerDelay   time.Duration
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "completes_within_timeout",
			timeout:        100 * time.Millisecond,
			handlerDelay:   10 * time.Millisecond,
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "times_out",
			timeout:        50 * time.Millisecond,
			handlerDelay:   200 * time.Millisecond,
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   "Request timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(tt.handlerDelay):
					w.WriteHeader(http.StatusOK)
					w.Write([]byte("success"))
				case <-r.Context().Done():
					return
				}
			})

			wrapped := middleware.Timeout(tt.timeout)(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestCompression(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding string
		contentType    string
		wantGzip       bool
	}{
		{"json_is_compressed", "gzip, deflate", "application/json", true},
		{"workbook_is_sent_as_is", "gzip", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", false},
		{"client_without_gzip", "br", "application/json", false},
		{"gzip_refused_by_quality", "gzip;q=0, br", "application/json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(`{"stock":42}`))
			})

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			w := httptest.NewRecorder()
			middleware.Compression(handler).ServeHTTP(w, req)

			assert.Equal(t, "Accept-Encoding", w.Header().Get("Vary"))
			if !tt.wantGzip {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				assert.Equal(t, `{"stock":42}`, w.Body.String())
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, `{"stock":42}`, string(body))
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "untrusted_peer_cannot_spoof",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.9:4000",
			forwarded:  "1.2.3.4",
			want:       "203.0.113.9",
		},
		{
			name:       "trusted_proxy_forwards_client",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4000",
			forwarded:  "198.51.100.7",
			want:       "198.51.100.7",
		},
		{
			name:       "skips_chained_trusted_proxies",
			trusted:    []string{"10.0.0.0/8", "192.0.2.1"},
			remoteAddr: "10.1.2.3:4000",
			forwarded:  "1.2.3.4, 198.51.100.7, 192.0.2.1",
			want:       "198.51.100.7",
		},
		{
			name:       "no_trusted_proxies",
			trusted:    []string{"not-an-ip"},
			remoteAddr: "10.1.2.3:4000",
			forwarded:  "198.51.100.7",
			want:       "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = r.Context().Value(logger.ContextKeyClientIP).(string)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("X-Forwarded-For", tt.forwarded)
			middleware.ClientIP(tt.trusted)(handler).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteError_QuotesRequestID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusConflict, "duplicate_request", "sale already in progress")
	})

	req := httptest.NewRequest("POST", "/api/v1/sales", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	middleware.RequestID(handler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w.Body)
	assert.Equal(t, "duplicate_request", body.Code)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestAuthenticate(t *testing.T) {
	actorID := uuid.New()

	signWith := func(secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	validClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  actorID.String(),
			"name": "Dana Reyes",
			"role": middleware.RoleCashier,
			"iss":  "stockledger-test",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{
			name:           "valid_token",
			header:         "Bearer " + helpers.TestToken(t, actorID, "Dana Reyes", middleware.RoleCashier),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing_header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong_scheme",
			header:         "Basic ZGFuYTpzZWNyZXQ=",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong_secret",
			header:         "Bearer " + signWith("another-secret-with-thirty-two-chars!", validClaims(), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signWith(helpers.TestJWTSecret, func() jwt.MapClaims {
				c := validClaims()
				c["exp"] = time.Now().Add(-time.Minute).Unix()
				return c
			}(), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong_issuer",
			header: "Bearer " + signWith(helpers.TestJWTSecret, func() jwt.MapClaims {
				c := validClaims()
				c["iss"] = "someone-else"
				return c
			}(), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown_role",
			header: "Bearer " + signWith(helpers.TestJWTSecret, func() jwt.MapClaims {
				c := validClaims()
				c["role"] = "auditor"
				return c
			}(), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "subject_not_uuid",
			header: "Bearer " + signWith(helpers.TestJWTSecret, func() jwt.MapClaims {
				c := validClaims()
				c["sub"] = "dana"
				return c
			}(), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "other_algorithm",
			header:         "Bearer " + signWith(helpers.TestJWTSecret, validClaims(), jwt.SigningMethodHS512),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor, ok := middleware.ActorFromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, actorID, actor.ID)
				assert.Equal(t, "Dana Reyes", actor.Name)
				assert.Equal(t, actorID.String(), r.Context().Value(logger.ContextKeyActorID))
				w.WriteHeader(http.StatusOK)
			})
			wrapped := middleware.Authenticate(helpers.TestJWTSecret, "stockledger-test")(handler)

			req := httptest.NewRequest("GET", "/api/v1/stock", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, "unauthorized", decodeError(t, w.Body).Code)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager)(ok)

	tests := []struct {
		name           string
		ctx            func(context.Context) context.Context
		expectedStatus int
	}{
		{
			name: "manager_allowed",
			ctx: func(ctx context.Context) context.Context {
				return middleware.WithActor(ctx, middleware.Actor{ID: uuid.New(), Role: middleware.RoleManager})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "cashier_forbidden",
			ctx: func(ctx context.Context) context.Context {
				return middleware.WithActor(ctx, middleware.Actor{ID: uuid.New(), Role: middleware.RoleCashier})
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "anonymous_unauthorized",
			ctx:            func(ctx context.Context) context.Context { return ctx },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/transactions", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
