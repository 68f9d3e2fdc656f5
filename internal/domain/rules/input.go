package rules

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/antchfx/xmlquery"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

// Input is the request view shared by all rules of one evaluation. Parsed
// forms of the body are computed on first use.
type Input struct {
	req          *match.IncomingRequest
	routePattern string

	jsonOnce sync.Once
	jsonBody any
	jsonErr  error

	xmlOnce sync.Once
	xmlDoc  *xmlquery.Node
	xmlErr  error
}

// NewInput wraps req for evaluation against rules of a definition whose
// route pattern is routePattern.
func NewInput(req *match.IncomingRequest, routePattern string) *Input {
	if req == nil {
		req = &match.IncomingRequest{}
	}
	return &Input{req: req, routePattern: routePattern}
}

// Request returns the underlying request.
func (in *Input) Request() *match.IncomingRequest { return in.req }

// JSON returns the body decoded as JSON.
func (in *Input) JSON() (any, error) {
	in.jsonOnce.Do(func() {
		in.jsonErr = json.Unmarshal(in.req.Body, &in.jsonBody)
	})
	return in.jsonBody, in.jsonErr
}

// XML returns the body parsed as an XML document.
func (in *Input) XML() (*xmlquery.Node, error) {
	in.xmlOnce.Do(func() {
		in.xmlDoc, in.xmlErr = xmlquery.Parse(bytes.NewReader(in.req.Body))
	})
	return in.xmlDoc, in.xmlErr
}
