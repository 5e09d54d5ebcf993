// internal/core/annex/fontes.go
package annex

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Fonte fornece o texto legal de onde os códigos dos anexos são extraídos.
type Fonte interface {
	Nome() string
	// Autoritativa indica se a fonte sobrescreve associações já existentes.
	Autoritativa() bool
	Texto(ctx context.Context) (string, error)
}

//go:embed dados/anexos_lc214.txt
var textoBaseLC214 string

type fonteTexto struct {
	nome         string
	texto        string
	autoritativa bool
}

func (f *fonteTexto) Nome() string       { return f.nome }
func (f *fonteTexto) Autoritativa() bool { return f.autoritativa }
func (f *fonteTexto) Texto(context.Context) (string, error) {
	if strings.TrimSpace(f.texto) == "" {
		return "", fmt.Errorf("fonte %s sem conteúdo", f.nome)
	}
	return f.texto, nil
}

// TextoBase é a cópia embutida dos anexos da LC 214/2025. É a fonte autoritativa.
func TextoBase() Fonte {
	return &fonteTexto{nome: "texto_base", texto: textoBaseLC214, autoritativa: true}
}

// NovaFonteTexto cria uma fonte a partir de um texto já disponível em memória.
func NovaFonteTexto(nome, texto string, autoritativa bool) Fonte {
	return &fonteTexto{nome: nome, texto: texto, autoritativa: autoritativa}
}

// FonteArquivo lê o texto legal de um arquivo local (.txt ou .html salvo).
// Não é autoritativa.
func FonteArquivo(caminho string) Fonte {
	return &fonteArquivo{caminho: caminho}
}

type fonteArquivo struct {
	caminho string
}

func (f *fonteArquivo) Nome() string       { return "arquivo:" + f.caminho }
func (f *fonteArquivo) Autoritativa() bool { return false }
func (f *fonteArquivo) Texto(context.Context) (string, error) {
	dados, err := os.ReadFile(f.caminho)
	if err != nil {
		return "", fmt.Errorf("erro ao ler legislação local: %w", err)
	}
	dados = paraUTF8(dados)
	if strings.HasSuffix(strings.ToLower(f.caminho), ".html") || strings.HasSuffix(strings.ToLower(f.caminho), ".htm") {
		return textoDeHTML(bytes.NewReader(dados))
	}
	return string(dados), nil
}

// LegislacaoOnline busca a página da lei no Planalto. É um enriquecimento de
// melhor esforço: qualquer falha é devolvida ao Construtor, que a ignora.
type LegislacaoOnline struct {
	url        string
	timeout    time.Duration
	tentativas uint64
	espera     time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// NovaLegislacaoOnline cria a fonte online com o timeout total informado.
func NovaLegislacaoOnline(url string, timeout time.Duration, logger *zap.Logger) *LegislacaoOnline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LegislacaoOnline{
		url:        url,
		timeout:    timeout,
		tentativas: 2,
		espera:     500 * time.Millisecond,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (l *LegislacaoOnline) Nome() string       { return "legislacao_online" }
func (l *LegislacaoOnline) Autoritativa() bool { return false }

// Texto baixa a página e devolve o texto sem marcação. Erros 5xx e de rede são
// repetidos até o limite de tentativas, sempre dentro do timeout total.
func (l *LegislacaoOnline) Texto(ctx context.Context) (string, error) {
	if l.url == "" {
		return "", errors.New("url da legislação não configurada")
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var texto string
	backoff := retry.WithMaxRetries(l.tentativas, retry.NewConstant(l.espera))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := l.buscar(ctx)
		if err != nil {
			var temp *erroTemporario
			if errors.As(err, &temp) {
				l.logger.Debug("nova tentativa de busca da legislação", zap.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		texto = t
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("falha ao buscar legislação em %s: %w", l.url, err)
	}
	return texto, nil
}

type erroTemporario struct{ err error }

func (e *erroTemporario) Error() string { return e.err.Error() }
func (e *erroTemporario) Unwrap() error { return e.err }

func (l *LegislacaoOnline) buscar(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; classificaReforma/1.0)")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &erroTemporario{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", &erroTemporario{err: fmt.Errorf("status inesperado: %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status inesperado: %d", resp.StatusCode)
	}

	corpo, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return "", &erroTemporario{err: err}
	}
	texto, err := textoDeHTML(bytes.NewReader(paraUTF8(corpo)))
	if err != nil {
		return "", fmt.Errorf("erro ao interpretar HTML da legislação: %w", err)
	}
	if strings.TrimSpace(texto) == "" {
		return "", errors.New("página da legislação sem texto")
	}
	return texto, nil
}

// paraUTF8 converte páginas em Windows-1252/ISO-8859-1, comuns em sites do governo.
func paraUTF8(dados []byte) []byte {
	if utf8.Valid(dados) {
		return dados
	}
	convertido, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), dados)
	if err != nil {
		return dados
	}
	return convertido
}

var elementosBloco = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"center": true, "blockquote": true,
}

// textoDeHTML extrai o texto visível, quebrando linha nos elementos de bloco
// para que os títulos dos anexos fiquem no início de uma linha.
func textoDeHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var percorrer func(n *html.Node)
	percorrer = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head":
				return
			}
			if elementosBloco[n.Data] {
				sb.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(strings.ReplaceAll(n.Data, "\u00a0", " "))
		}
		for filho := n.FirstChild; filho != nil; filho = filho.NextSibling {
			percorrer(filho)
		}
		if n.Type == html.ElementNode && elementosBloco[n.Data] {
			sb.WriteString("\n")
		}
	}
	percorrer(doc)
	return sb.String(), nil
}
