// Package discovery anuncia o monitor na rede local via mDNS/DNS-SD e
// localiza outros monitores anunciados.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"vitals_go/internal/config"
	"vitals_go/pkg/logger"
)

const (
	// DefaultServiceType é o tipo de serviço anunciado
	DefaultServiceType = "_vitals._tcp"

	// DefaultDomain é o domínio mDNS
	DefaultDomain = "local."

	// Version vai no registro TXT para os clientes filtrarem compatibilidade
	Version = "1.0"
)

var log = logger.For("discovery")

// Service gerencia o anúncio do servidor na rede local
type Service struct {
	server       *zeroconf.Server
	mutex        sync.Mutex
	instanceName string
	serviceType  string
	domain       string
	port         int
	running      bool
	serverIP     string
	txt          map[string]string
}

// NewService cria o serviço de anúncio. txt são metadados extras (chave=valor).
func NewService(cfg config.DiscoveryConfig, port int, txt map[string]string) *Service {
	serviceType := cfg.Service
	if serviceType == "" {
		serviceType = DefaultServiceType
	}
	domain := cfg.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	return &Service{
		instanceName: instanceName(cfg.Instance),
		serviceType:  serviceType,
		domain:       domain,
		port:         port,
		txt:          txt,
	}
}

// instanceName usa o nome configurado ou "<hostname>-vitals"
func instanceName(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "monitor"
	}
	return hostname + "-vitals"
}

// Start registra o serviço no mDNS
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	ip, err := LocalIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := zeroconf.Register(
		s.instanceName,
		s.serviceType,
		s.domain,
		s.port,
		TXTRecords(ip, s.txt),
		nil,
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	log.Infof("Serviço anunciado em %s:%d (mDNS: %s.%s%s)", ip, s.port, s.instanceName, s.serviceType, s.domain)
	return nil
}

// TXTRecords monta os registros TXT em ordem estável
func TXTRecords(ip string, extra map[string]string) []string {
	records := []string{
		"version=" + Version,
		"ip=" + ip,
		"name=Vitals Monitor",
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		records = append(records, k+"="+extra[k])
	}
	return records
}

// Stop remove o anúncio
func (s *Service) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	log.Infof("Serviço de descoberta parado")
}

// ServerIP retorna o IP anunciado
func (s *Service) ServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

func (s *Service) Port() int            { return s.port }
func (s *Service) InstanceName() string { return s.instanceName }
func (s *Service) ServiceType() string  { return s.serviceType }
func (s *Service) Domain() string       { return s.domain }

// IsRunning verifica se o anúncio está ativo
func (s *Service) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Entry é um monitor encontrado na rede
type Entry struct {
	Instance string            `json:"instance"`
	Host     string            `json:"host"`
	IPs      []string          `json:"ips"`
	Port     int               `json:"port"`
	TXT      map[string]string `json:"txt"`
}

// Browse procura monitores anunciados até timeout ou cancelamento do ctx
func Browse(ctx context.Context, serviceType, domain string, timeout time.Duration) ([]Entry, error) {
	if serviceType == "" {
		serviceType = DefaultServiceType
	}
	if domain == "" {
		domain = DefaultDomain
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar resolver mDNS: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found []Entry
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			mu.Lock()
			found = append(found, toEntry(e))
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		return nil, fmt.Errorf("erro ao procurar %s: %w", serviceType, err)
	}

	<-ctx.Done()
	// o resolver fecha entries ao encerrar
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]Entry(nil), found...), nil
}

func toEntry(e *zeroconf.ServiceEntry) Entry {
	entry := Entry{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		TXT:      ParseTXT(e.Text),
	}
	for _, ip := range e.AddrIPv4 {
		entry.IPs = append(entry.IPs, ip.String())
	}
	for _, ip := range e.AddrIPv6 {
		entry.IPs = append(entry.IPs, ip.String())
	}
	return entry
}

// ParseTXT converte registros "chave=valor" em mapa. Registros sem "=" viram
// chaves com valor vazio.
func ParseTXT(records []string) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k != "" {
			m[k] = v
		}
	}
	return m
}

// LocalIP obtém o primeiro endereço IPv4 que não seja loopback
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
