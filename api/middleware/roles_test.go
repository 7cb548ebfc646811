package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reraeasy/quotation-engine/pkg/enums"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role enums.UserRole
		want int
	}{
		{"admin", enums.UserRoleAdmin, http.StatusOK},
		{"manager", enums.UserRoleManager, http.StatusOK},
		{"user", enums.UserRoleUser, http.StatusForbidden},
		{"anonymous", "", http.StatusForbidden},
	}

	mw := RequireRole(nil, enums.UserRoleAdmin, enums.UserRoleManager)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.role != "" {
				req = req.WithContext(WithRole(req.Context(), tt.role))
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, resp.Code)
			}
		})
	}
}
