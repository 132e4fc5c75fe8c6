package gate

import "crypto/subtle"

// Service is the panel-entry gate. Verify is a plain equality check
// against a constant that never leaves configuration: it is a speed bump
// in front of the management surface, not a security boundary. Real
// authorization is the admin role plus the elevated flag on the session
// token, which Verify success lets the handler mint.
type Service struct {
	panelCode string
}

func NewService(panelCode string) *Service {
	return &Service{panelCode: panelCode}
}

func (s *Service) Verify(supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(s.panelCode), []byte(supplied)) == 1
}
