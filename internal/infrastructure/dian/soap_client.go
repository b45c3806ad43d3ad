package dian

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/pos-core/internal/application/filing"
)

// Valores de DIAN_APP_ENV. dev no llama al WS.
const (
	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "prod"

	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSTempuri  = "http://tempuri.org/"
	soapActionBase = "http://tempuri.org/IWcfDianCustomerServices/"

	// statusInProcess código de GetStatusZip mientras la DIAN valida el documento.
	statusInProcess = "98"
)

var endpoints = map[string]string{
	AppEnvTest: "https://vpfe-hab.dian.gov.co/WcfDianCustomerServices.svc",
	AppEnvProd: "https://vpfe.dian.gov.co/WcfDianCustomerServices.svc",
}

var _ filing.Submitter = (*SOAPClient)(nil)

// SOAPClient entrega los documentos al WS SOAP de la DIAN y consulta su estado.
type SOAPClient struct {
	http      *http.Client
	env       string
	testSetID string
	baseURL   string
}

// NewSOAPClient solo para test o prod. El WS tarda varios segundos en responder.
func NewSOAPClient(env, testSetID string) (*SOAPClient, error) {
	url, ok := endpoints[env]
	if !ok {
		return nil, fmt.Errorf("soap: entorno %q sin servicio DIAN (test|prod)", env)
	}
	return &SOAPClient{
		http:      &http.Client{Timeout: time.Minute},
		env:       env,
		testSetID: testSetID,
		baseURL:   url,
	}, nil
}

// WithEndpoint cambia la URL del servicio (pruebas contra un servidor local).
func (c *SOAPClient) WithEndpoint(url string) *SOAPClient {
	c.baseURL = url
	return c
}

// envelope arma s:Envelope con la operación y sus parámetros en orden.
func envelope(operation string, params ...[2]string) ([]byte, error) {
	doc := etree.NewDocument()
	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", soapNS)
	env.CreateElement("s:Header")
	op := env.CreateElement("s:Body").CreateElement(operation)
	op.CreateAttr("xmlns", soapNSTempuri)
	for _, p := range params {
		op.CreateElement(p[0]).SetText(p[1])
	}
	return doc.WriteToBytes()
}

// reply cubre las tres respuestas y el Fault; solo una viene poblada.
type reply struct {
	Body struct {
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Bill    *asyncResult `xml:"SendBillAsyncResponse>SendBillAsyncResult"`
		TestSet *asyncResult `xml:"SendTestSetAsyncResponse>SendTestSetAsyncResult"`
		Status  *struct {
			Responses []dianResponse `xml:"DianResponse"`
		} `xml:"GetStatusZipResponse>GetStatusZipResult"`
	} `xml:"Body"`
}

type asyncResult struct {
	HasErrors bool     `xml:"HasErrors"`
	Errors    []string `xml:"ErrorMessageList>string"`
	ZipKey    string   `xml:"ZipKey"`
}

type dianResponse struct {
	IsValid     bool     `xml:"IsValid"`
	Code        string   `xml:"StatusCode"`
	Description string   `xml:"StatusDescription"`
	Errors      []string `xml:"ErrorMessage>string"`
}

func decodeReply(raw []byte) (*reply, error) {
	var r reply
	if err := xml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("soap: respuesta ilegible: %w", err)
	}
	return &r, nil
}

// Submit empaqueta el XML firmado y lo envía con SendBillAsync (prod) o SendTestSetAsync (test).
func (c *SOAPClient) Submit(ctx context.Context, fileName string, signedXML []byte) (*filing.SubmitResult, error) {
	zipBytes, err := CompressXMLToZip(signedXML, xmlNameFor(fileName))
	if err != nil {
		return nil, err
	}
	params := [][2]string{
		{"fileName", fileName},
		{"contentFile", base64.StdEncoding.EncodeToString(zipBytes)},
	}
	action := "SendBillAsync"
	if c.env != AppEnvProd {
		action = "SendTestSetAsync"
		params = append(params, [2]string{"testSetId", c.testSetID})
	}
	raw, err := c.call(ctx, action, params...)
	if err != nil {
		return nil, err
	}
	return parseSubmitResponse(raw)
}

// Status consulta el resultado de la validación con GetStatusZip.
func (c *SOAPClient) Status(ctx context.Context, trackID string) (*filing.StatusResult, error) {
	raw, err := c.call(ctx, "GetStatusZip", [2]string{"trackId", trackID})
	if err != nil {
		return nil, err
	}
	return parseStatusResponse(raw)
}

// call envía el envelope y devuelve el cuerpo. Un error aquí es de transporte: el resultado
// en la DIAN es desconocido.
func (c *SOAPClient) call(ctx context.Context, action string, params ...[2]string) ([]byte, error) {
	payload, err := envelope(action, params...)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionBase+action)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	if resp.StatusCode >= 500 && !bytes.Contains(raw, []byte("Fault")) {
		return nil, fmt.Errorf("soap: respuesta HTTP %d", resp.StatusCode)
	}
	return raw, nil
}

// parseSubmitResponse Fault o HasErrors es rechazo definitivo; si no, queda el ZipKey.
func parseSubmitResponse(raw []byte) (*filing.SubmitResult, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return nil, err
	}
	if f := r.Body.Fault; f != nil {
		return &filing.SubmitResult{Errors: fmt.Sprintf("SOAP Fault [%s]: %s", f.Code, f.String)}, nil
	}
	res := r.Body.Bill
	if res == nil {
		res = r.Body.TestSet
	}
	if res == nil {
		return nil, fmt.Errorf("soap: respuesta de envío sin resultado")
	}
	return &filing.SubmitResult{
		TrackID:  res.ZipKey,
		Accepted: !res.HasErrors,
		Errors:   strings.Join(res.Errors, "; "),
	}, nil
}

// parseStatusResponse IsValid es aceptación; código 98 o respuesta vacía sigue en validación;
// cualquier otro código es rechazo.
func parseStatusResponse(raw []byte) (*filing.StatusResult, error) {
	r, err := decodeReply(raw)
	if err != nil {
		return nil, err
	}
	if f := r.Body.Fault; f != nil {
		return nil, fmt.Errorf("soap: fault en consulta de estado [%s]: %s", f.Code, f.String)
	}
	if r.Body.Status == nil || len(r.Body.Status.Responses) == 0 {
		return &filing.StatusResult{}, nil
	}
	d := r.Body.Status.Responses[0]
	if d.IsValid {
		return &filing.StatusResult{Done: true, Accepted: true}, nil
	}
	if d.Code == statusInProcess || d.Code == "" {
		return &filing.StatusResult{}, nil
	}
	msg := d.Description
	if len(d.Errors) > 0 {
		msg += ": " + strings.Join(d.Errors, "; ")
	}
	return &filing.StatusResult{Done: true, Errors: msg}, nil
}
