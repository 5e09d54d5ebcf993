// cmd/classificar/classificar.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/LuisEduardoPedra/classificaReforma/internal/api/responses"
	"github.com/LuisEduardoPedra/classificaReforma/internal/bootstrap"
	"github.com/LuisEduardoPedra/classificaReforma/internal/config"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/classification"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runClassificar(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	arquivoConfig, _ := flags.GetString("config")
	cfg, err := config.Load(arquivoConfig)
	if err != nil {
		return err
	}
	if v, _ := flags.GetString("tipi"); v != "" {
		cfg.TIPIPath = v
	}
	if v, _ := flags.GetString("regras"); v != "" {
		cfg.RegrasJSONPath = v
	}
	if flags.Changed("ibs") {
		cfg.AliquotaIBS, _ = flags.GetFloat64("ibs")
	}
	if flags.Changed("cbs") {
		cfg.AliquotaCBS, _ = flags.GetFloat64("cbs")
	}
	if err := config.ValidarAliquotas(cfg.AliquotaIBS, cfg.AliquotaCBS); err != nil {
		return err
	}
	if flags.Changed("online") {
		cfg.LegislacaoOnline, _ = flags.GetBool("online")
	}
	nivel, _ := flags.GetString("log-level")
	logger := responses.InitLogger(nivel)
	defer logger.Sync()

	motor, err := bootstrap.MontarMotor(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	svc := classification.NewService(motor.Resolver, motor.Indice, motor.Anexos, cfg.RelatorioTTL, logger)

	arquivos := make([]classification.Arquivo, 0, len(args))
	for _, caminho := range args {
		f, err := os.Open(caminho)
		if err != nil {
			return fmt.Errorf("erro ao abrir %s: %w", caminho, err)
		}
		defer f.Close()
		arquivos = append(arquivos, classification.Arquivo{Nome: filepath.Base(caminho), Conteudo: f})
	}

	rel, err := svc.ClassificarArquivos(cmd.Context(), arquivos, classification.Opcoes{})
	if err != nil {
		return err
	}
	for _, a := range rel.Arquivos {
		if a.StatusCode != domain.StatusArquivoProcessado {
			logger.Warn("arquivo com problema", zap.String("arquivo", a.Nome), zap.String("erro", a.Erro))
		}
	}

	if asJSON, _ := flags.GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rel)
	}
	return imprimirRelatorio(cmd.OutOrStdout(), rel)
}

func imprimirRelatorio(out io.Writer, rel domain.Relatorio) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if rel.Empresa != "" {
		fmt.Fprintf(w, "Empresa:\t%s\n\n", rel.Empresa)
	}
	fmt.Fprintln(w, "TIPO\tNOTA\tPRODUTO\tNCM\tCFOP\tVALOR\tCCLASSTRIB\tSTATUS\tCST\tATUAL\tPROJETADA\tTIPI")
	blocos := []struct {
		tipo  string
		itens []domain.ItemClassificado
	}{
		{"SAÍDA", rel.Vendas},
		{"ENTRADA", rel.Compras},
		{"OUTRO", rel.Outros},
	}
	for _, b := range blocos {
		for _, it := range b.itens {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
				b.tipo, it.NumNota, truncar(it.Produto, 30), it.NCM, it.CFOP, it.Valor,
				it.Resultado.CClassTrib, it.Resultado.Status, it.Resultado.NovoCST,
				it.Resultado.CargaAtual, it.Resultado.CargaProjetada, it.Resultado.ValidacaoTIPI)
		}
	}

	r := rel.Resumo
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Débitos (saídas):\t%.2f\n", r.Debitos)
	fmt.Fprintf(w, "Créditos (entradas):\t%.2f\n", r.Creditos)
	fmt.Fprintf(w, "Saldo IBS/CBS:\t%.2f\n", r.Saldo)
	fmt.Fprintf(w, "Carga atual total:\t%.2f\n", r.CargaAtualTotal)
	fmt.Fprintf(w, "Produtos únicos:\t%d\n", r.ProdutosUnicos)
	fmt.Fprintf(w, "Itens para revisar:\t%d\n", r.ItensParaRevisar)
	for _, st := range classification.StatusOrdenados(r) {
		fmt.Fprintf(w, "  %s\t%d\n", st, r.ItensPorStatus[st])
	}
	for _, aviso := range rel.Avisos {
		fmt.Fprintf(w, "Aviso:\t%s\n", aviso)
	}
	return w.Flush()
}

func truncar(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
