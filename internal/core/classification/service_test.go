// internal/core/classification/service_test.go
package classification

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/LuisEduardoPedra/classificaReforma/internal/core/annex"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type itemXML struct {
	ncm, cfop             string
	valor, icms, pis, cof float64
}

func notaXML(numero, emitente string, itens ...itemXML) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe><infNFe Id="NFe%s">`, numero)
	fmt.Fprintf(&sb, `<ide><natOp>OPERACAO</natOp><nNF>%s</nNF></ide><emit><xNome>%s</xNome></emit>`, numero, emitente)
	for i, it := range itens {
		fmt.Fprintf(&sb, `<det nItem="%d"><prod><cProd>%d</cProd><xProd>PRODUTO %d</xProd><NCM>%s</NCM><CFOP>%s</CFOP><vProd>%.2f</vProd></prod>`,
			i+1, i+1, i+1, it.ncm, it.cfop, it.valor)
		fmt.Fprintf(&sb, `<imposto><ICMS><ICMS00><vICMS>%.2f</vICMS></ICMS00></ICMS><PIS><PISAliq><vPIS>%.2f</vPIS></PISAliq></PIS><COFINS><COFINSAliq><vCOFINS>%.2f</vCOFINS></COFINSAliq></COFINS></imposto></det>`,
			it.icms, it.pis, it.cof)
	}
	fmt.Fprintf(&sb, `</infNFe></NFe><protNFe><infProt><chNFe>CHAVE%s</chNFe></infProt></protNFe></nfeProc>`, numero)
	return sb.String()
}

func novoServico(t *testing.T) Service {
	t.Helper()
	idx := novoIndice(t)
	r := NovoResolver(Config{Indice: idx, Anexos: annex.RegrasPadrao(), Logger: zaptest.NewLogger(t)})
	return NewService(r, idx, annex.RegrasPadrao(), time.Minute, zaptest.NewLogger(t))
}

func arquivo(nome, conteudo string) Arquivo {
	return Arquivo{Nome: nome, Conteudo: strings.NewReader(conteudo)}
}

func TestClassificarArquivos(t *testing.T) {
	svc := novoServico(t)

	arquivos := []Arquivo{
		arquivo("venda.xml", notaXML("1", "Mercado Central",
			itemXML{ncm: "10063021", cfop: "5102", valor: 100},
			itemXML{ncm: "22030000", cfop: "5405", valor: 100},
			itemXML{ncm: "99999999", cfop: "6102", valor: 200, icms: 24, pis: 3.3, cof: 15.2},
		)),
		arquivo("compra.xml", notaXML("2", "Distribuidora",
			itemXML{ncm: "30041000", cfop: "1102", valor: 100},
		)),
		arquivo("transferencia.xml", notaXML("3", "Mercado Central",
			itemXML{ncm: "99999999", cfop: "9999", valor: 50},
		)),
		arquivo("quebrado.xml", "<html>não é nota</html>"),
		arquivo("sem_itens.xml", notaXML("4", "Mercado Central")),
	}

	rel, err := svc.ClassificarArquivos(context.Background(), arquivos, Opcoes{})
	require.NoError(t, err)

	assert.NotEmpty(t, rel.ID)
	assert.Equal(t, "Mercado Central", rel.Empresa)
	require.Len(t, rel.Arquivos, 5)
	assert.Equal(t, domain.StatusArquivoProcessado, rel.Arquivos[0].StatusCode)
	assert.Equal(t, 3, rel.Arquivos[0].Itens)
	assert.Equal(t, "CHAVE1", rel.Arquivos[0].ChaveNFe)
	assert.Equal(t, domain.StatusXMLInvalido, rel.Arquivos[3].StatusCode)
	assert.NotEmpty(t, rel.Arquivos[3].Erro)
	assert.Equal(t, domain.StatusXMLSemItens, rel.Arquivos[4].StatusCode)

	require.Len(t, rel.Vendas, 3)
	require.Len(t, rel.Compras, 1)
	require.Len(t, rel.Outros, 1)
	assert.Equal(t, "ZERO (Anexo I)", rel.Vendas[0].Resultado.Status)
	assert.Equal(t, StatusImpostoSeletivo, rel.Vendas[1].Resultado.Status)
	assert.Equal(t, 42.06, rel.Vendas[2].Resultado.CargaProjetada)
	assert.Equal(t, 10.68, rel.Compras[0].Resultado.CargaProjetada)

	r := rel.Resumo
	assert.Equal(t, 42.06, r.Debitos)
	assert.Equal(t, 10.68, r.Creditos)
	assert.Equal(t, 31.38, r.Saldo)
	assert.Equal(t, 42.5, r.CargaAtualTotal)
	assert.Equal(t, 550.0, r.ValorTotal)
	assert.Equal(t, 1, r.ItensParaRevisar)
	assert.Equal(t, 5, r.ProdutosUnicos)
	assert.Equal(t, map[string]int{
		"ZERO (Anexo I)":          1,
		StatusImpostoSeletivo:     1,
		StatusPadrao:              2,
		"REDUZIDA 60% (Anexo VI)": 1,
	}, r.ItensPorStatus)
	assert.Equal(t, []string{StatusImpostoSeletivo, StatusPadrao, "REDUZIDA 60% (Anexo VI)", "ZERO (Anexo I)"}, StatusOrdenados(r))

	salvo, err := svc.Relatorio(rel.ID)
	require.NoError(t, err)
	assert.Equal(t, rel, salvo)
}

func TestClassificarArquivos_ProdutosUnicosEAvisos(t *testing.T) {
	svc := novoServico(t)

	mesmo := itemXML{ncm: "1006.30.21", cfop: "5102", valor: 100}
	arquivos := []Arquivo{
		arquivo("a.xml", notaXML("1", "Mercado", mesmo, itemXML{ncm: "84713012", cfop: "6109", valor: 100})),
		arquivo("b.xml", notaXML("2", "Mercado", itemXML{ncm: "10063021", cfop: "5.102", valor: 80})),
	}
	rel, err := svc.ClassificarArquivos(context.Background(), arquivos, Opcoes{Avisos: []string{"tabela ignorada"}})
	require.NoError(t, err)

	assert.Equal(t, 2, rel.Resumo.ProdutosUnicos)
	assert.Equal(t, 1, rel.Resumo.ItensParaRevisar)
	assert.Equal(t, 1, rel.Resumo.ItensPorStatus[StatusBeneficio])
	assert.Equal(t, []string{"tabela ignorada"}, rel.Avisos)
}

func TestClassificarArquivos_TabelasDaRequisicao(t *testing.T) {
	svc := novoServico(t)
	palavras, err := tables.CarregarPalavrasChave(strings.NewReader(jsonClassificacao), false)
	require.NoError(t, err)

	nota := notaXML("9", "Farmácia", itemXML{ncm: "30990000", cfop: "5102", valor: 100})

	rel, err := svc.ClassificarArquivos(context.Background(), []Arquivo{arquivo("a.xml", nota)}, Opcoes{
		Referencia:    tables.NovaReferencia([]string{"3099"}),
		PalavrasChave: palavras,
	})
	require.NoError(t, err)
	require.Len(t, rel.Vendas, 1)
	assert.Equal(t, "200009", rel.Vendas[0].Resultado.CClassTrib)
	assert.Equal(t, tables.ValidacaoApenasPrefixo, rel.Vendas[0].Resultado.ValidacaoTIPI)

	// As tabelas da requisição não ficam no serviço.
	res := svc.ClassificarItem(domain.ItemFiscal{NCM: "30990000", CFOP: "5102", Valor: 100})
	assert.Equal(t, "000001", res.CClassTrib)
	assert.Equal(t, tables.ValidacaoIndisponivel, res.ValidacaoTIPI)
}

func TestClassificarArquivos_Erros(t *testing.T) {
	svc := novoServico(t)

	_, err := svc.ClassificarArquivos(context.Background(), nil, Opcoes{})
	assert.ErrorIs(t, err, ErrSemArquivos)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ClassificarArquivos(ctx, []Arquivo{arquivo("a.xml", notaXML("1", "x"))}, Opcoes{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Relatorio("nao-existe")
	assert.ErrorIs(t, err, ErrRelatorioNaoEncontrado)
}

func TestClassificarArquivos_MuitosArquivos(t *testing.T) {
	svc := novoServico(t)
	var arquivos []Arquivo
	for i := 0; i < 40; i++ {
		arquivos = append(arquivos, arquivo(fmt.Sprintf("%d.xml", i),
			notaXML(fmt.Sprint(i+1), "Loja", itemXML{ncm: "99999999", cfop: "5102", valor: 100})))
	}
	rel, err := svc.ClassificarArquivos(context.Background(), arquivos, Opcoes{})
	require.NoError(t, err)
	assert.Len(t, rel.Vendas, 40)
	assert.Equal(t, 1068.0, rel.Resumo.Debitos)
	for i, a := range rel.Arquivos {
		assert.Equal(t, fmt.Sprintf("%d.xml", i), a.Nome)
	}
}

func TestAnexos(t *testing.T) {
	anexos := novoServico(t).Anexos()
	require.Len(t, anexos, len(annex.RegrasPadrao()))
	for _, a := range anexos {
		assert.Positive(t, a.Codigos, a.AnexoID)
	}
}

func TestCodigosDoAnexo(t *testing.T) {
	svc := novoServico(t)

	for _, id := range []string{"ANEXO I", "anexo_i", "Anexo-I"} {
		resumo, codigos, ok := svc.CodigosDoAnexo(id)
		require.True(t, ok, id)
		assert.Equal(t, "ANEXO I", resumo.AnexoID)
		assert.Equal(t, len(codigos), resumo.Codigos)
		assert.Contains(t, codigos, "100630")
	}

	_, _, ok := svc.CodigosDoAnexo("ANEXO XC")
	assert.False(t, ok)
}

func TestTipoOperacao(t *testing.T) {
	assert.Equal(t, operacaoSaida, tipoOperacao("5102"))
	assert.Equal(t, operacaoSaida, tipoOperacao("7.101"))
	assert.Equal(t, operacaoEntrada, tipoOperacao("1102"))
	assert.Equal(t, operacaoEntrada, tipoOperacao("3101"))
	assert.Equal(t, operacaoOutra, tipoOperacao("9999"))
	assert.Equal(t, operacaoOutra, tipoOperacao(""))
}
