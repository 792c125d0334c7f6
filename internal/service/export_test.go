package service

import "time"

// WithNow pins the service clock for tests.
func (s *GenerationService) WithNow(now func() time.Time) *GenerationService {
	s.now = now
	return s
}

// WithNow pins the service clock for tests.
func (s *UserService) WithNow(now func() time.Time) *UserService {
	s.now = now
	return s
}
