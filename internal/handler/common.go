package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"banking-ledger/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// writeServiceError renders err, hiding anything that is not an AppError.
func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		if appErr.Kind() == errors.KindInternal {
			// driver messages stay in the logs
			writeError(w, errors.NewAppError(errors.InternalError, appErr.Message))
			return
		}
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
}

func decodeJSON(r *http.Request, dst interface{}) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	if err := validateStruct(dst); err != nil {
		return err
	}
	return nil
}

func int64Var(r *http.Request, name string) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", name)
	}
	return id, nil
}
