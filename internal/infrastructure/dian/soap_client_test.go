package dian_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	infradian "github.com/jhoicas/pos-core/internal/infrastructure/dian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const envelope = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>%s</s:Body></s:Envelope>`

type fakeDIAN struct {
	mu       sync.Mutex
	actions  []string
	bodies   []string
	status   int
	response string
}

func (f *fakeDIAN) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.actions = append(f.actions, r.Header.Get("SOAPAction"))
	f.bodies = append(f.bodies, string(raw))
	status, response := f.status, f.response
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, strings.Replace(envelope, "%s", response, 1))
}

func (f *fakeDIAN) calls() (actions, bodies []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...), append([]string(nil), f.bodies...)
}

func newClient(t *testing.T, env string, f *fakeDIAN) *infradian.SOAPClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := infradian.NewSOAPClient(env, "set-123")
	require.NoError(t, err)
	return c.WithEndpoint(srv.URL)
}

func TestNewSOAPClient_UnknownEnvironment(t *testing.T) {
	_, err := infradian.NewSOAPClient("staging", "")
	assert.Error(t, err)
}

func TestSOAPClient_SubmitTestSet(t *testing.T) {
	f := &fakeDIAN{response: `<SendTestSetAsyncResponse xmlns="http://tempuri.org/"><SendTestSetAsyncResult><ErrorMessageList/><ZipKey>zip-key-1</ZipKey></SendTestSetAsyncResult></SendTestSetAsyncResponse>`}
	c := newClient(t, infradian.AppEnvTest, f)

	res, err := c.Submit(context.Background(), "900123456SETP1.zip", []byte("<Invoice/>"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "zip-key-1", res.TrackID)

	actions, bodies := f.calls()
	require.Len(t, actions, 1)
	assert.Equal(t, "http://tempuri.org/IWcfDianCustomerServices/SendTestSetAsync", actions[0])
	assert.Contains(t, bodies[0], "<fileName>900123456SETP1.zip</fileName>")
	assert.Contains(t, bodies[0], "<testSetId>set-123</testSetId>")
}

func TestSOAPClient_SubmitProductionWithErrors(t *testing.T) {
	f := &fakeDIAN{response: `<SendBillAsyncResponse><SendBillAsyncResult><HasErrors>true</HasErrors><ErrorMessageList><string>FAD06: CUFE inválido</string></ErrorMessageList><ZipKey></ZipKey></SendBillAsyncResult></SendBillAsyncResponse>`}
	c := newClient(t, infradian.AppEnvProd, f)

	res, err := c.Submit(context.Background(), "900123456SETP1.zip", []byte("<Invoice/>"))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Errors, "FAD06")
	actions, _ := f.calls()
	assert.Equal(t, []string{"http://tempuri.org/IWcfDianCustomerServices/SendBillAsync"}, actions)
}

func TestSOAPClient_SubmitFaultIsRejection(t *testing.T) {
	f := &fakeDIAN{
		status:   http.StatusInternalServerError,
		response: `<s:Fault><faultcode>s:Client</faultcode><faultstring>Firma inválida</faultstring></s:Fault>`,
	}
	res, err := newClient(t, infradian.AppEnvTest, f).Submit(context.Background(), "a.zip", []byte("<Invoice/>"))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Errors, "Firma inválida")
}

func TestSOAPClient_ServerErrorIsTransport(t *testing.T) {
	f := &fakeDIAN{status: http.StatusBadGateway, response: ""}
	_, err := newClient(t, infradian.AppEnvTest, f).Submit(context.Background(), "a.zip", []byte("<Invoice/>"))
	assert.Error(t, err)
}

func TestSOAPClient_Status(t *testing.T) {
	cases := []struct {
		name         string
		response     string
		wantDone     bool
		wantAccepted bool
		wantErrors   string
	}{
		{
			name:         "aceptado",
			response:     `<GetStatusZipResponse><GetStatusZipResult><DianResponse><IsValid>true</IsValid><StatusCode>00</StatusCode></DianResponse></GetStatusZipResult></GetStatusZipResponse>`,
			wantDone:     true,
			wantAccepted: true,
		},
		{
			name:     "en validación",
			response: `<GetStatusZipResponse><GetStatusZipResult><DianResponse><IsValid>false</IsValid><StatusCode>98</StatusCode></DianResponse></GetStatusZipResult></GetStatusZipResponse>`,
		},
		{
			name:     "sin respuesta",
			response: `<GetStatusZipResponse><GetStatusZipResult/></GetStatusZipResponse>`,
		},
		{
			name:       "rechazado",
			response:   `<GetStatusZipResponse><GetStatusZipResult><DianResponse><IsValid>false</IsValid><StatusCode>99</StatusCode><StatusDescription>Validación contiene errores</StatusDescription><ErrorMessage><string>Regla FAJ43b</string></ErrorMessage></DianResponse></GetStatusZipResult></GetStatusZipResponse>`,
			wantDone:   true,
			wantErrors: "Regla FAJ43b",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeDIAN{response: tc.response}
			st, err := newClient(t, infradian.AppEnvTest, f).Status(context.Background(), "zip-key-1")
			require.NoError(t, err)
			assert.Equal(t, tc.wantDone, st.Done)
			assert.Equal(t, tc.wantAccepted, st.Accepted)
			if tc.wantErrors != "" {
				assert.Contains(t, st.Errors, tc.wantErrors)
			}
			_, bodies := f.calls()
			require.Len(t, bodies, 1)
			assert.Contains(t, bodies[0], "<trackId>zip-key-1</trackId>")
		})
	}
}

func TestSOAPClient_StatusFaultIsError(t *testing.T) {
	f := &fakeDIAN{response: `<s:Fault><faultcode>s:Server</faultcode><faultstring>Servicio no disponible</faultstring></s:Fault>`}
	_, err := newClient(t, infradian.AppEnvTest, f).Status(context.Background(), "zip-key-1")
	assert.Error(t, err)
}

func TestSOAPClient_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, infradian.AppEnvTest, &fakeDIAN{}).Status(ctx, "zip-key-1")
	assert.ErrorIs(t, err, context.Canceled)
}
