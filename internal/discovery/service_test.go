package discovery

import (
	"reflect"
	"strings"
	"testing"

	"vitals_go/internal/config"
)

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(config.DiscoveryConfig{}, 8080, nil)
	if s.ServiceType() != DefaultServiceType || s.Domain() != DefaultDomain {
		t.Fatalf("tipo = %q domínio = %q", s.ServiceType(), s.Domain())
	}
	if !strings.HasSuffix(s.InstanceName(), "-vitals") {
		t.Fatalf("instância = %q", s.InstanceName())
	}
	if s.IsRunning() {
		t.Fatal("serviço não iniciado não deveria estar ativo")
	}

	s = NewService(config.DiscoveryConfig{Instance: "leito-3", Service: "_outro._tcp"}, 9000, nil)
	if s.InstanceName() != "leito-3" || s.ServiceType() != "_outro._tcp" || s.Port() != 9000 {
		t.Fatalf("configuração ignorada: %s %s %d", s.InstanceName(), s.ServiceType(), s.Port())
	}

	// Stop sem Start não faz nada
	s.Stop()
}

func TestTXTRecords(t *testing.T) {
	got := TXTRecords("10.0.0.5", map[string]string{"ws": "/ws", "api": "/api"})
	want := []string{"version=" + Version, "ip=10.0.0.5", "name=Vitals Monitor", "api=/api", "ws=/ws"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TXTRecords = %v, want %v", got, want)
	}

	parsed := ParseTXT(got)
	if parsed["ip"] != "10.0.0.5" || parsed["ws"] != "/ws" || parsed["version"] != Version {
		t.Fatalf("ParseTXT = %v", parsed)
	}
}

func TestParseTXTEdgeCases(t *testing.T) {
	got := ParseTXT([]string{"flag", "=semchave", "k=a=b"})
	if v, ok := got["flag"]; !ok || v != "" {
		t.Fatalf("flag = %q, %v", v, ok)
	}
	if got["k"] != "a=b" {
		t.Fatalf("k = %q", got["k"])
	}
	if len(got) != 2 {
		t.Fatalf("len = %d (%v)", len(got), got)
	}
}
