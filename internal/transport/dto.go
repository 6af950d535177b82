package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gpio_shop/internal/models"
)

var ErrInvalidBody = errors.New("invalid body")

type CredentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type CheckoutRequest struct {
	Items []string `json:"items"`
}

// ProductPatchFromRequest reads product fields from a multipart, urlencoded or
// JSON body. Only keys present in the submission end up non-nil.
func ProductPatchFromRequest(c echo.Context) (models.ProductPatch, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return patchFromJSON(c.Request().Body)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm), strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		form, err := c.FormParams()
		if err != nil {
			return models.ProductPatch{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return patchFromForm(form)
	default:
		// empty bodies carry no fields
		if c.Request().ContentLength == 0 {
			return models.ProductPatch{}, nil
		}
		return models.ProductPatch{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidBody, ctype)
	}
}

func patchFromForm(form map[string][]string) (models.ProductPatch, error) {
	var p models.ProductPatch
	get := func(key string) (string, bool) {
		v, ok := form[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	if v, ok := get("name"); ok {
		p.Name = &v
	}
	if v, ok := get("description"); ok {
		p.Description = &v
	}
	if v, ok := get("gpioAction"); ok {
		p.GPIOAction = &v
	}
	if v, ok := get("image"); ok {
		p.Image = &v
	}
	if v, ok := get("price"); ok {
		f, err := parsePrice(v)
		if err != nil {
			return p, err
		}
		p.Price = &f
	}
	if v, ok := get("gpioPin"); ok {
		n, err := parsePin(v)
		if err != nil {
			return p, err
		}
		p.GPIOPin = &n
	}
	return p, nil
}

type productJSON struct {
	Name        *string         `json:"name"`
	Price       json.RawMessage `json:"price"`
	Description *string         `json:"description"`
	GPIOPin     json.RawMessage `json:"gpioPin"`
	GPIOAction  *string         `json:"gpioAction"`
	Image       *string         `json:"image"`
}

func patchFromJSON(r io.Reader) (models.ProductPatch, error) {
	var in productJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ProductPatch{}, nil
		}
		return models.ProductPatch{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	p := models.ProductPatch{
		Name:        in.Name,
		Description: in.Description,
		GPIOAction:  in.GPIOAction,
		Image:       in.Image,
	}
	if s, ok := rawScalar(in.Price); ok {
		f, err := parsePrice(s)
		if err != nil {
			return p, err
		}
		p.Price = &f
	}
	if s, ok := rawScalar(in.GPIOPin); ok {
		n, err := parsePin(s)
		if err != nil {
			return p, err
		}
		p.GPIOPin = &n
	}
	return p, nil
}

// rawScalar unwraps a JSON number or numeric string. null counts as absent.
func rawScalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}

func parsePrice(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: price %q is not a number", ErrInvalidBody, v)
	}
	return f, nil
}

func parsePin(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: gpioPin %q is not an integer", ErrInvalidBody, v)
	}
	return n, nil
}

// BindCredentials reads email and password from JSON or form bodies.
func BindCredentials(c echo.Context) (CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return req, nil
}

func BindCheckout(c echo.Context) (CheckoutRequest, error) {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if req.Items == nil {
		return req, fmt.Errorf("%w: items required", ErrInvalidBody)
	}
	return req, nil
}

func Message(c echo.Context, status int, msg string) error {
	return c.JSON(status, MessageResponse{Message: msg})
}

func Error(c echo.Context, status int, msg string, cause error) error {
	resp := ErrorResponse{Message: msg}
	if cause != nil {
		resp.Error = cause.Error()
	}
	return c.JSON(status, resp)
}
