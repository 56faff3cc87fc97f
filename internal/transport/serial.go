package transport

import (
	"sync"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialConfig selects a device and line speed. The line is always 8N1.
type SerialConfig struct {
	Device string
	Baud   int
}

// Serial wraps a serial port opened with a zero read timeout.
type Serial struct {
	mu   sync.Mutex
	port serial.Port
	dev  string
	up   bool
}

func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Device == "" {
		return nil, errors.New("transport: missing serial device")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: open serial %s", cfg.Device)
	}
	if err := port.SetReadTimeout(0); err != nil {
		_ = port.Close()
		return nil, errors.Wrapf(err, "transport: set read timeout %s", cfg.Device)
	}
	logs.Infof("transport.OpenSerial opened device=%s baud=%d", cfg.Device, cfg.Baud)
	return &Serial{port: port, dev: cfg.Device, up: true}, nil
}

func (s *Serial) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up
}

func (s *Serial) Read(p []byte) (int, error) {
	if !s.Connected() {
		return 0, ErrClosed
	}
	n, err := s.port.Read(p)
	if err != nil {
		return n, s.fail(errors.Wrapf(err, "transport: read serial %s", s.dev))
	}
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	if !s.Connected() {
		return 0, ErrClosed
	}
	n, err := s.port.Write(p)
	if err != nil {
		return n, s.fail(errors.Wrapf(err, "transport: write serial %s", s.dev))
	}
	return n, nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	s.up = false
	s.mu.Unlock()
	return s.port.Close()
}

func (s *Serial) fail(err error) error {
	s.mu.Lock()
	wasUp := s.up
	s.up = false
	s.mu.Unlock()
	if wasUp {
		logs.Warnf("transport.Serial link down err=%v", err)
	}
	return err
}

// SerialPorts lists devices the OS reports as serial ports.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "transport: list serial ports")
	}
	return ports, nil
}
