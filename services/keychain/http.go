package keychain

import (
	"encoding/json"
	"net/http"
)

type setLoginPasswordRequest struct {
	Namespace string `json:"namespace"`
	Id        string `json:"id"`
	AccountId string `json:"account_id"`
	Password  string `json:"password"`
}

type setCookieRequest struct {
	Namespace string `json:"namespace"`
	Id        string `json:"id"`
	Value     string `json:"value"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// RegisterHandlers exposes write-only credential endpoints. Reads stay
// in-process, secrets never travel back out over the control surface.
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /keychain/login-password", func(w http.ResponseWriter, r *http.Request) {
		var req setLoginPasswordRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJson(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if req.Namespace == "" || req.Id == "" {
			writeJson(w, http.StatusBadRequest, errorBody{Error: "namespace and id are required"})
			return
		}
		err = s.SetLoginPassword(r.Context(), req.Namespace, req.Id, LoginPassword{
			AccountId: req.AccountId,
			Password:  req.Password,
		})
		if err != nil {
			writeJson(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		writeJson(w, http.StatusOK, struct{}{})
	})

	mux.HandleFunc("POST /keychain/cookie", func(w http.ResponseWriter, r *http.Request) {
		var req setCookieRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJson(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if req.Namespace == "" || req.Id == "" {
			writeJson(w, http.StatusBadRequest, errorBody{Error: "namespace and id are required"})
			return
		}
		err = s.SetCookie(r.Context(), req.Namespace, req.Id, req.Value)
		if err != nil {
			writeJson(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		writeJson(w, http.StatusOK, struct{}{})
	})
}
