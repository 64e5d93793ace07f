package backend

import (
	"io"
	"net"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/rscarvalho/blockv/pkg/wire"
)

// initialReadBufferSize mirrors the original server's fixed-size scratch
// buffer: large enough that a small write's header and payload usually
// arrive in one read, while the fragmentation-reassembly loop in
// handleWrite still handles the rest.
const initialReadBufferSize = 4096

// HandleConn sends the handshake and then services READ/WRITE/FINISH
// requests against dev until the client disconnects, issues FINISH, or a
// framing anomaly forces the connection closed. The caller is responsible
// for closing conn once HandleConn returns.
func HandleConn(log hclog.Logger, conn net.Conn, dev *BackingDevice) error {
	info := wire.ServerInfo{DeviceSize: uint32(dev.Size()), ReadOnly: dev.ReadOnly()}
	if _, err := conn.Write(wire.EncodeServerInfo(info)); err != nil {
		return errors.Wrap(err, "sending handshake")
	}

	buf := make([]byte, initialReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == io.EOF {
				log.Debug("client disconnected")
				return nil
			}
			return errors.Wrap(err, "reading request")
		}
		if n == 0 {
			continue
		}

		tag := wire.PeekRequestTag(buf[:n])
		if !tag.Valid() {
			return errors.Errorf("invalid request tag 0x%x", buf[0])
		}

		switch tag {
		case wire.ReqRead:
			if err := handleRead(log, conn, dev, buf[:n]); err != nil {
				return err
			}
		case wire.ReqWrite:
			if err := handleWrite(log, conn, dev, buf[:n]); err != nil {
				return err
			}
		case wire.ReqFinish:
			log.Debug("client requested finish")
			return nil
		}
	}
}

func handleRead(log hclog.Logger, conn net.Conn, dev *BackingDevice, buf []byte) error {
	if len(buf) < wire.ReadRequestSize {
		return errors.Errorf("short read request: got %d bytes, want %d", len(buf), wire.ReadRequestSize)
	}

	req, err := wire.DecodeReadRequest(buf[:wire.ReadRequestSize])
	if err != nil {
		return errors.Wrap(err, "decoding read request")
	}

	payload := wire.Frames.Get(int(req.Size))
	defer wire.Frames.Return(payload)

	n, err := dev.ReadAt(payload, int64(req.Offset))
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading backing device")
	}

	requestsServed.WithLabelValues("read").Inc()
	bytesServed.Add(float64(n))

	if _, err := conn.Write(wire.EncodeReadResponseHeader(uint32(n))); err != nil {
		return errors.Wrap(err, "writing read response header")
	}

	if n > 0 {
		w, err := conn.Write(payload[:n])
		if err != nil {
			return errors.Wrap(err, "writing read response payload")
		}
		if w != n {
			log.Warn("short write of read response payload", "wrote", w, "want", n)
		}
	}

	log.Trace("served read", "offset", req.Offset, "requested", req.Size, "returned", n)
	return nil
}

func handleWrite(log hclog.Logger, conn net.Conn, dev *BackingDevice, buf []byte) error {
	if len(buf) < wire.WriteRequestHeaderSize {
		return errors.Errorf("short write request: got %d bytes, want %d", len(buf), wire.WriteRequestHeaderSize)
	}

	hdr, err := wire.DecodeWriteRequestHeader(buf[:wire.WriteRequestHeaderSize])
	if err != nil {
		return errors.Wrap(err, "decoding write request")
	}

	already := buf[wire.WriteRequestHeaderSize:]

	if dev.ReadOnly() {
		// This resolves the upstream TODO: a read-only write request is
		// drained in full so the connection's byte cursor stays aligned
		// with the next request, instead of being left as a silent stub.
		if err := drain(conn, already, int(hdr.Size)); err != nil {
			return errors.Wrap(err, "draining read-only write payload")
		}
		requestsServed.WithLabelValues("write_readonly").Inc()
		log.Debug("ignored write to read-only device", "offset", hdr.Offset, "size", hdr.Size)
		_, err := conn.Write(wire.EncodeWriteResponse(0))
		return errors.Wrap(err, "writing write response")
	}

	payload := wire.Frames.Get(int(hdr.Size))
	defer wire.Frames.Return(payload)

	n := copy(payload, already)
	for n < len(payload) {
		r, err := conn.Read(payload[n:])
		if err != nil {
			return errors.Wrap(err, "reading write payload")
		}
		n += r
	}

	accepted, err := dev.WriteAt(payload, int64(hdr.Offset))
	if err != nil {
		return errors.Wrap(err, "writing backing device")
	}

	requestsServed.WithLabelValues("write").Inc()
	bytesServed.Add(float64(accepted))

	log.Trace("served write", "offset", hdr.Offset, "size", hdr.Size)

	_, err = conn.Write(wire.EncodeWriteResponse(uint32(accepted)))
	return errors.Wrap(err, "writing write response")
}

// drain reads and discards the rest of a write payload that the server has
// decided not to act on, so the next request on the connection starts at
// the right byte offset.
func drain(conn net.Conn, already []byte, total int) error {
	remaining := total - len(already)
	if remaining <= 0 {
		return nil
	}

	scratch := wire.Frames.Get(initialReadBufferSize)
	defer wire.Frames.Return(scratch)

	for remaining > 0 {
		chunk := scratch
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		r, err := conn.Read(chunk)
		if err != nil {
			return err
		}
		remaining -= r
	}
	return nil
}
