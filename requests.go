package defensio

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// Document types accepted by the service.
const (
	DocumentComment   = "comment"
	DocumentTrackback = "trackback"
	DocumentPingback  = "pingback"
	DocumentArticle   = "article"
	DocumentWiki      = "wiki"
	DocumentForum     = "forum"
	DocumentOther     = "other"
	DocumentTest      = "test"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("param"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// DocumentRequest describes a document submitted with PostDocument.
//
//	req := defensio.DocumentRequest{
//	    Content:  "This is a simple test",
//	    Platform: "my_awesome_app",
//	    Type:     defensio.DocumentComment,
//	}
//	params, err := req.Params()
//	if err != nil {
//	    return err
//	}
//	status, result, err := client.PostDocument(ctx, params)
type DocumentRequest struct {
	Content  string `param:"content" validate:"required"`
	Platform string `param:"platform" validate:"required"`
	Type     string `param:"type" validate:"required,oneof=comment trackback pingback article wiki forum other test"`

	AuthorEmail    string `param:"author_email" validate:"omitempty,email"`
	AuthorID       string `param:"author_id"`
	AuthorIP       string `param:"author_ip" validate:"omitempty,ip"`
	AuthorLoggedIn *bool  `param:"author_logged_in"`
	AuthorName     string `param:"author_name"`
	AuthorOpenID   string `param:"author_openid" validate:"omitempty,url"`
	AuthorTrusted  *bool  `param:"author_trusted"`
	AuthorURL      string `param:"author_url" validate:"omitempty,url"`

	// Async asks the service to classify in the background and post the
	// result to AsyncCallback.
	Async         bool   `param:"async"`
	AsyncCallback string `param:"async_callback" validate:"required_if=Async true,omitempty,url"`

	BrowserHeaders          string `param:"browser_headers"`
	DocumentPermalink       string `param:"document_permalink" validate:"omitempty,url"`
	HTTPHeaders             string `param:"http_headers"`
	ParentDocumentDate      Date   `param:"parent_document_date"`
	ParentDocumentPermalink string `param:"parent_document_permalink" validate:"omitempty,url"`
	Referrer                string `param:"referrer"`
	Title                   string `param:"title"`
}

// Validate reports every invalid field of the request.
func (r *DocumentRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var result *multierror.Error
	for _, fe := range fieldErrs {
		result = multierror.Append(result, &ValidationError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
			Err:     fe,
		})
	}
	return result.ErrorOrNil()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.Replace(fe.Param(), " ", " is ", 1)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "ip":
		return "must be a valid IP address"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// Params validates the request and returns its parameters. Unset optional
// fields are left out.
func (r *DocumentRequest) Params() (Params, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	p := Params{
		Symbol("content"):  r.Content,
		Symbol("platform"): r.Platform,
		Symbol("type"):     r.Type,
	}
	setString(p, "author_email", r.AuthorEmail)
	setString(p, "author_id", r.AuthorID)
	setString(p, "author_ip", r.AuthorIP)
	setBool(p, "author_logged_in", r.AuthorLoggedIn)
	setString(p, "author_name", r.AuthorName)
	setString(p, "author_openid", r.AuthorOpenID)
	setBool(p, "author_trusted", r.AuthorTrusted)
	setString(p, "author_url", r.AuthorURL)
	if r.Async {
		p[Symbol("async")] = true
		setString(p, "async_callback", r.AsyncCallback)
	}
	setString(p, "browser_headers", r.BrowserHeaders)
	setString(p, "document_permalink", r.DocumentPermalink)
	setString(p, "http_headers", r.HTTPHeaders)
	if !r.ParentDocumentDate.IsZero() {
		p[Symbol("parent_document_date")] = r.ParentDocumentDate
	}
	setString(p, "parent_document_permalink", r.ParentDocumentPermalink)
	setString(p, "referrer", r.Referrer)
	setString(p, "title", r.Title)
	return p, nil
}

func setString(p Params, name, value string) {
	if value != "" {
		p[Symbol(name)] = value
	}
}

func setBool(p Params, name string, value *bool) {
	if value != nil {
		p[Symbol(name)] = *value
	}
}

// ExtendedStatsRange returns the parameters selecting daily statistics from
// one date to another, inclusive.
func ExtendedStatsRange(from, to Date) Params {
	return Params{
		Symbol("from"): from,
		Symbol("to"):   to,
	}
}
