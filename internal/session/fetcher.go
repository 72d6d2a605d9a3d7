package session

import (
	"context"
	"fmt"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/avctp"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/infra/metrics"
)

// fetchStatusCommand runs one complete status exchange against conn:
// it sends pdu with params as a Status command, skips Interim responses,
// and stitches a fragmented reply back together by requesting each
// continuation packet until a Single or Stop packet arrives. The
// concatenated parameter bytes are returned.
func fetchStatusCommand(ctx context.Context, conn PeerConnection, pdu avc.PduID, params []byte) ([]byte, error) {
	body := avc.EncodeVendorBody(pdu, params)
	ctype := avc.CommandStatus

	var assembled []byte
	rounds := 0
	for {
		stream, err := conn.SendVendorCommand(ctx, ctype, body)
		if err != nil {
			return nil, err
		}
		resp, err := awaitStableResponse(ctx, stream)
		if err != nil {
			return nil, err
		}
		pre, payload, err := avc.DecodePreamble(resp.Body)
		if err != nil {
			return nil, err
		}
		assembled = append(assembled, payload...)
		rounds++

		if !pre.PacketType.HasMore() {
			metrics.ContinuationRounds.Observe(float64(rounds))
			return assembled, nil
		}
		// next packet is requested with a Control-type follow-up
		body = avc.EncodeRequestContinuingResponse(pre.PduID)
		ctype = avc.CommandControl
	}
}

// awaitStableResponse reads stream until a final stable response arrives.
// Interim responses are skipped; every other non-stable code maps to a
// command-level error.
func awaitStableResponse(ctx context.Context, stream <-chan avctp.Response) (avctp.Response, error) {
	for {
		select {
		case resp, ok := <-stream:
			if !ok {
				return avctp.Response{}, fmt.Errorf("%w: stream closed before a response",
					domain.ErrCommandFailed)
			}
			if resp.Err != nil {
				return avctp.Response{}, resp.Err
			}
			switch resp.Code {
			case avc.ResponseInterim:
				continue
			case avc.ResponseImplementedStable:
				return resp, nil
			case avc.ResponseNotImplemented:
				return avctp.Response{}, domain.ErrCommandNotSupported
			case avc.ResponseRejected:
				return avctp.Response{}, rejectionError(resp.Body)
			default:
				return avctp.Response{}, fmt.Errorf("%w: %s", domain.ErrUnexpectedResponse, resp.Code)
			}
		case <-ctx.Done():
			return avctp.Response{}, ctx.Err()
		}
	}
}

// rejectionError turns a Rejected response body into a command error
// carrying the remote status when it decodes.
func rejectionError(body []byte) error {
	status, err := avc.DecodeRejectedStatus(body)
	if err != nil {
		return domain.ErrCommandFailed
	}
	return fmt.Errorf("%w: %s", domain.ErrCommandFailed, status)
}
