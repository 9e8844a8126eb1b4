package model

// Service is one service of a build descriptor.
type Service struct {
	Name  string
	Image string
	Build bool // built from local sources rather than pulled
	Ports []PortMapping
}

// Publishes reports whether the service publishes port on the host.
func (s *Service) Publishes(port int) bool {
	for _, p := range s.Ports {
		if p.HostPort == port {
			return true
		}
	}
	return false
}
