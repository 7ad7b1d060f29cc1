package transport

import (
	"net/http"
	"strconv"
	"strings"

	"architect/internal/domain/entity"
)

// parseDesignForm reads the form fields into a request. Absent scalar fields
// keep their defaults; an absent materials field means nothing was ticked.
func parseDesignForm(r *http.Request) (entity.DesignRequest, error) {
	if err := r.ParseForm(); err != nil {
		return entity.DefaultDesignRequest(), err
	}
	req := entity.DefaultDesignRequest()
	var fields []entity.FieldError

	if v := strings.TrimSpace(r.PostFormValue("length")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields = append(fields, entity.FieldError{Field: "length", Message: "must be a number"})
		}
		req.Length = n
	}
	if v := strings.TrimSpace(r.PostFormValue("width")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields = append(fields, entity.FieldError{Field: "width", Message: "must be a number"})
		}
		req.Width = n
	}
	if v := strings.TrimSpace(r.PostFormValue("floors")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields = append(fields, entity.FieldError{Field: "floors", Message: "must be a whole number"})
		}
		req.Floors = n
	}
	if v := r.PostFormValue("style"); v != "" {
		req.Style = entity.Style(v)
	}
	if _, ok := r.PostForm["brief"]; ok {
		req.Brief = r.PostFormValue("brief")
	}

	req.Materials = make([]entity.Material, 0, len(r.PostForm["materials"]))
	for _, m := range r.PostForm["materials"] {
		req.Materials = append(req.Materials, entity.Material(m))
	}

	if len(fields) > 0 {
		return req, &entity.ValidationError{Fields: fields}
	}
	return req, nil
}
