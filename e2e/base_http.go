package e2e

import (
	"chat-presence/client"
	"fmt"

	"github.com/gookit/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL not set")
	}
}

// Step prints a colorized header then runs fn as a subtest
func (s *BaseHTTPSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// NewParticipant returns a client under a name no other run uses
func (s *BaseHTTPSuite) NewParticipant(prefix string) *client.Client {
	return client.New(s.Config.ServerURL, prefix+"-"+uuid.NewString()[:8])
}
