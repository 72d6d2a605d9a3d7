package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
)

func TestDispatcher_PassthroughAccepted(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandControl, avc.OpcodePassthrough,
		avc.EncodePassthroughBody(avc.KeyPlay, true), rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	resp := rec.at(0)
	assert.Equal(t, avc.ResponseAccepted, resp.code)
	assert.Equal(t, avc.EncodePassthroughBody(avc.KeyPlay, true), resp.body)
}

func TestDispatcher_PassthroughUnknownKeyRejected(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandControl, avc.OpcodePassthrough,
		[]byte{0x7a, 0x00}, rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, avc.ResponseRejected, rec.at(0).code)
}

func TestDispatcher_PassthroughMalformedBestEffortReject(t *testing.T) {
	rec := &responseRecorder{fail: errors.New("broken pipe")}
	cmd := avctp.NewCommand(avc.CommandControl, avc.OpcodePassthrough, nil, rec.respond)

	d := newDispatcher(nil, "peer")
	// the rejection cannot be sent, but that is not escalated
	assert.NoError(t, d.handleCommand(cmd))
}

func TestDispatcher_VendorUnknownPduNotImplemented(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandStatus, avc.OpcodeVendorDependent,
		avc.EncodeVendorBody(avc.PduID(0x99), nil), rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	resp := rec.at(0)
	assert.Equal(t, avc.ResponseNotImplemented, resp.code)
	assert.Equal(t, avc.EncodeVendorBody(avc.PduID(0x99), nil), resp.body)
}

func TestDispatcher_VendorTruncatedPreambleNotImplemented(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandStatus, avc.OpcodeVendorDependent,
		[]byte{byte(avc.PduGetCapabilities)}, rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	resp := rec.at(0)
	assert.Equal(t, avc.ResponseNotImplemented, resp.code)
	assert.Equal(t, avc.EncodeVendorBody(avc.PduGetCapabilities, nil), resp.body)
}

func TestDispatcher_NotifyRegistrationRejected(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandNotify, avc.OpcodeVendorDependent,
		avc.EncodeVendorBody(avc.PduRegisterNotification,
			avc.EncodeRegisterNotification(avc.EventVolumeChanged, 0)), rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	resp := rec.at(0)
	assert.Equal(t, avc.ResponseRejected, resp.code)
	assert.Equal(t, avc.EncodeVendorBody(avc.PduRegisterNotification,
		avc.RejectParams(avc.StatusInvalidParameter)), resp.body)
}

func TestDispatcher_GetCapabilities(t *testing.T) {
	tests := []struct {
		name       string
		params     []byte
		wantCode   avc.ResponseCode
		wantParams []byte
	}{
		{
			name:       "company id list",
			params:     avc.EncodeGetCapabilities(avc.CapabilityCompanyID),
			wantCode:   avc.ResponseImplementedStable,
			wantParams: avc.CompanyIDCapabilityParams(),
		},
		{
			name:       "supported events list",
			params:     avc.EncodeGetCapabilities(avc.CapabilityEventsSupported),
			wantCode:   avc.ResponseImplementedStable,
			wantParams: avc.EventsCapabilityParams(),
		},
		{
			name:       "unknown capability id",
			params:     []byte{0x7f},
			wantCode:   avc.ResponseRejected,
			wantParams: avc.RejectParams(avc.StatusInvalidParameter),
		},
		{
			name:       "missing capability id",
			params:     nil,
			wantCode:   avc.ResponseRejected,
			wantParams: avc.RejectParams(avc.StatusParameterContentError),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &responseRecorder{}
			cmd := avctp.NewCommand(avc.CommandStatus, avc.OpcodeVendorDependent,
				avc.EncodeVendorBody(avc.PduGetCapabilities, tt.params), rec.respond)

			d := newDispatcher(nil, "peer")
			require.NoError(t, d.handleCommand(cmd))

			require.Equal(t, 1, rec.count())
			resp := rec.at(0)
			assert.Equal(t, tt.wantCode, resp.code)
			assert.Equal(t, avc.EncodeVendorBody(avc.PduGetCapabilities, tt.wantParams), resp.body)
		})
	}
}

func TestDispatcher_GetElementAttributesPlaceholder(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandStatus, avc.OpcodeVendorDependent,
		avc.EncodeVendorBody(avc.PduGetElementAttributes,
			avc.EncodeGetElementAttributes()), rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	resp := rec.at(0)
	assert.Equal(t, avc.ResponseImplementedStable, resp.code)
	assert.Equal(t, avc.EncodeVendorBody(avc.PduGetElementAttributes,
		avc.PlaceholderElementAttributesParams()), resp.body)
}

func TestDispatcher_StatusUnhandledPduNotImplemented(t *testing.T) {
	rec := &responseRecorder{}
	cmd := avctp.NewCommand(avc.CommandStatus, avc.OpcodeVendorDependent,
		avc.EncodeVendorBody(avc.PduGetPlayStatus, nil), rec.respond)

	d := newDispatcher(nil, "peer")
	require.NoError(t, d.handleCommand(cmd))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, avc.ResponseNotImplemented, rec.at(0).code)
}

func TestDispatcher_SendFailureEscalates(t *testing.T) {
	rec := &responseRecorder{fail: errors.New("broken pipe")}
	cmd := avctp.NewCommand(avc.CommandControl, avc.OpcodePassthrough,
		avc.EncodePassthroughBody(avc.KeyPlay, true), rec.respond)

	d := newDispatcher(nil, "peer")
	assert.Error(t, d.handleCommand(cmd))
}
