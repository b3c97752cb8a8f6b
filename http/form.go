package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"fraudguard/ml"

	"github.com/go-playground/validator/v10"
)

const maxFormMemory = 1 << 20

var (
	formValidate = validator.New()
	formRules    = buildFormRules()
)

func buildFormRules() map[string]interface{} {
	rules := make(map[string]interface{}, ml.NumFormFields)
	for _, name := range ml.FormFields() {
		rules[name] = "required"
	}
	return rules
}

// FormError 表单校验失败，对应400
type FormError struct {
	Missing []string
	Invalid []string
}

func (e *FormError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "fields must be finite numbers: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// parseTransactionForm 解析并校验30个必填字段，接受urlencoded和multipart两种编码。
// 返回的raw保留原始输入用于回显。
func parseTransactionForm(r *http.Request) (ml.Transaction, map[string]string, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, fmt.Errorf("parse form: %w", err)
	}

	raw := make(map[string]string, ml.NumFormFields)
	data := make(map[string]interface{}, ml.NumFormFields)
	for _, name := range ml.FormFields() {
		if values, ok := r.PostForm[name]; ok && len(values) > 0 {
			v := strings.TrimSpace(values[0])
			raw[name] = values[0]
			data[name] = v
		}
	}

	formErr := &FormError{}
	for name := range formValidate.ValidateMap(data, formRules) {
		formErr.Missing = append(formErr.Missing, name)
	}

	tx := make(ml.Transaction, ml.NumFormFields)
	for name, v := range data {
		s := v.(string)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			formErr.Invalid = append(formErr.Invalid, name)
			continue
		}
		tx[name] = f
	}

	if len(formErr.Missing)+len(formErr.Invalid) > 0 {
		sort.Strings(formErr.Missing)
		sort.Strings(formErr.Invalid)
		return nil, raw, formErr
	}
	return tx, raw, nil
}
