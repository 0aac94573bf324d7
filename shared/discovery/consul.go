package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"
)

// Registration describes how a service instance is announced to Consul.
type Registration struct {
	ServiceName string
	Host        string
	Port        int
	// GRPCHealthAddr, when set, makes Consul probe the gRPC health protocol instead
	// of the HTTP health endpoint.
	GRPCHealthAddr string
	HTTPHealthPath string
}

// ConsulRegistrar registers one service instance with a Consul agent.
type ConsulRegistrar struct {
	client    *api.Client
	logger    *zerolog.Logger
	serviceID string
}

// NewConsulRegistrar creates a registrar talking to the agent at addr.
func NewConsulRegistrar(addr string, logger *zerolog.Logger) (*ConsulRegistrar, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulRegistrar{client: client, logger: logger}, nil
}

// Register announces the instance and remembers its id for Deregister.
func (r *ConsulRegistrar) Register(reg Registration) error {
	if reg.ServiceName == "" {
		return errors.New("service name is required")
	}

	asr := newAgentServiceRegistration(reg)
	if err := r.client.Agent().ServiceRegister(asr); err != nil {
		return fmt.Errorf("register service %s: %w", asr.ID, err)
	}

	r.serviceID = asr.ID
	r.logger.Info().Str("service_id", asr.ID).Msg("registered with consul")

	return nil
}

// Deregister removes the instance registered by Register. It is a no-op if nothing
// was registered.
func (r *ConsulRegistrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}

	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		return fmt.Errorf("deregister service %s: %w", r.serviceID, err)
	}

	r.logger.Info().Str("service_id", r.serviceID).Msg("deregistered from consul")
	r.serviceID = ""

	return nil
}

func newAgentServiceRegistration(reg Registration) *api.AgentServiceRegistration {
	check := &api.AgentServiceCheck{
		Interval:                       "10s",
		Timeout:                        "3s",
		DeregisterCriticalServiceAfter: "1m",
	}

	if reg.GRPCHealthAddr != "" {
		check.GRPC = reg.GRPCHealthAddr + "/" + reg.ServiceName
	} else {
		path := reg.HTTPHealthPath
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		check.HTTP = fmt.Sprintf("http://%s:%d%s", reg.Host, reg.Port, path)
	}

	return &api.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s", reg.ServiceName, uuid.NewString()),
		Name:    reg.ServiceName,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    []string{"http"},
		Check:   check,
	}
}
