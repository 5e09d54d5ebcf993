// cmd/classificar/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classificar [arquivos.xml...]",
		Short: "Classifica itens de NF-e para o IBS/CBS da Reforma Tributária",
		Long: `Lê XMLs de NF-e, classifica cada item por NCM e CFOP (anexos da LC 214/2025,
CFOPs não onerosos e de exportação, Imposto Seletivo) e compara a carga
atual de ICMS/PIS/COFINS com a carga projetada de IBS/CBS.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runClassificar,
	}
	flags := cmd.Flags()
	flags.String("config", "", "arquivo de configuração (yaml)")
	flags.String("tipi", "", "tabela TIPI (.xlsx, .xls ou .csv) para validar os NCMs")
	flags.String("regras", "", "JSON de classificação tributária (cClassTrib)")
	flags.Float64("ibs", 0, "alíquota de IBS (padrão da configuração)")
	flags.Float64("cbs", 0, "alíquota de CBS (padrão da configuração)")
	flags.Bool("json", false, "saída em JSON")
	flags.Bool("online", false, "consulta o texto da lei no Planalto antes de usar a cópia embutida")
	flags.String("log-level", "warn", "nível de log (debug, info, warn, error)")
	return cmd
}
