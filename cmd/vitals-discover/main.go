// vitals-discover lista os monitores anunciados na rede local via mDNS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"vitals_go/internal/discovery"
	"vitals_go/pkg/logger"
)

func main() {
	var (
		service = flag.String("service", discovery.DefaultServiceType, "tipo de serviço DNS-SD")
		domain  = flag.String("domain", discovery.DefaultDomain, "domínio mDNS")
		wait    = flag.Duration("wait", 3*time.Second, "tempo de busca")
		asJSON  = flag.Bool("json", false, "saída em JSON")
	)
	flag.Parse()
	logger.Init()

	entries, err := discovery.Browse(context.Background(), *service, *domain, *wait)
	if err != nil {
		logger.Fatal("Erro na busca mDNS", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			logger.Fatal("Erro ao codificar resultado", err)
		}
		return
	}

	if len(entries) == 0 {
		fmt.Println("Nenhum monitor encontrado")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s:%d\t%s\tversão %s\n", e.Instance, e.Host, e.Port, strings.Join(e.IPs, ","), e.TXT["version"])
	}
}
