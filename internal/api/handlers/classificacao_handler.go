// internal/api/handlers/classificacao_handler.go
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/LuisEduardoPedra/classificaReforma/internal/api/responses"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/classification"
	"github.com/LuisEduardoPedra/classificaReforma/internal/core/tables"
	"github.com/LuisEduardoPedra/classificaReforma/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ClassificacaoHandler struct {
	service         classification.Service
	buscaAproximada bool
}

func NewClassificacaoHandler(service classification.Service, buscaAproximada bool) *ClassificacaoHandler {
	return &ClassificacaoHandler{service: service, buscaAproximada: buscaAproximada}
}

// HandleClassificar recebe os XMLs (campo xmlFiles) e, opcionalmente, uma TIPI
// (tipiFile) e um JSON de classificação (regrasFile) que valem só para esta
// requisição. Tabelas ilegíveis são ignoradas e viram avisos no relatório.
func (h *ClassificacaoHandler) HandleClassificar(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Formulário inválido", err)
		return
	}
	xmlFileHeaders := form.File["xmlFiles"]
	if len(xmlFileHeaders) == 0 {
		responses.Error(c, http.StatusBadRequest, "Nenhum arquivo XML foi enviado")
		return
	}

	var opcoes classification.Opcoes
	if header := primeiroArquivo(form, "tipiFile"); header != nil {
		ref, err := abrirELer(header, func(f multipart.File) (*tables.Referencia, error) {
			return tables.CarregarReferencia(f, header.Filename)
		})
		if err != nil {
			zap.L().Warn("tabela TIPI enviada ignorada", zap.String("arquivo", header.Filename), zap.Error(err))
			opcoes.Avisos = append(opcoes.Avisos, "Tabela TIPI ignorada ("+header.Filename+"): validação de NCM indisponível")
		} else {
			opcoes.Referencia = ref
		}
	}
	if header := primeiroArquivo(form, "regrasFile"); header != nil {
		palavras, err := abrirELer(header, func(f multipart.File) (*tables.PalavrasChave, error) {
			return tables.CarregarPalavrasChave(f, h.buscaAproximada)
		})
		if err != nil {
			zap.L().Warn("JSON de classificação enviado ignorado", zap.String("arquivo", header.Filename), zap.Error(err))
			opcoes.Avisos = append(opcoes.Avisos, "JSON de classificação ignorado ("+header.Filename+"): busca por palavra-chave usa a tabela padrão")
		} else {
			opcoes.PalavrasChave = palavras
		}
	}

	arquivos := make([]classification.Arquivo, 0, len(xmlFileHeaders))
	for _, header := range xmlFileHeaders {
		file, err := header.Open()
		if err != nil {
			responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir um dos arquivos XML", err)
			return
		}
		defer file.Close()
		arquivos = append(arquivos, classification.Arquivo{Nome: header.Filename, Conteudo: file})
	}

	relatorio, err := h.service.ClassificarArquivos(c.Request.Context(), arquivos, opcoes)
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao classificar os arquivos", err)
		return
	}
	c.JSON(http.StatusOK, relatorio)
}

// HandleRelatorio devolve um relatório gerado anteriormente.
func (h *ClassificacaoHandler) HandleRelatorio(c *gin.Context) {
	relatorio, err := h.service.Relatorio(c.Param("id"))
	if errors.Is(err, classification.ErrRelatorioNaoEncontrado) {
		responses.Error(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Erro ao buscar relatório", err)
		return
	}
	c.JSON(http.StatusOK, relatorio)
}

// HandleClassificarNCM classifica um único item informado na URL.
func (h *ClassificacaoHandler) HandleClassificarNCM(c *gin.Context) {
	item := domain.ItemFiscal{
		NCM:  c.Param("codigo"),
		CFOP: c.DefaultQuery("cfop", "5102"),
	}
	campos := []struct {
		nome string
		dest *float64
	}{
		{"valor", &item.Valor},
		{"vicms", &item.VICMS},
		{"vpis", &item.VPIS},
		{"vcofins", &item.VCOFINS},
	}
	for _, campo := range campos {
		bruto := strings.TrimSpace(c.Query(campo.nome))
		if bruto == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(bruto, ",", ".", 1), 64)
		if err != nil {
			responses.Error(c, http.StatusBadRequest, "Parâmetro numérico inválido: "+campo.nome, err)
			return
		}
		*campo.dest = v
	}

	c.JSON(http.StatusOK, domain.ItemClassificado{ItemFiscal: item, Resultado: h.service.ClassificarItem(item)})
}

// HandleAnexos lista os anexos carregados e o tamanho do índice de cada um.
func (h *ClassificacaoHandler) HandleAnexos(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"anexos": h.service.Anexos()})
}

// HandleCodigosAnexo lista os NCMs indexados para um anexo.
func (h *ClassificacaoHandler) HandleCodigosAnexo(c *gin.Context) {
	resumo, codigos, ok := h.service.CodigosDoAnexo(c.Param("id"))
	if !ok {
		responses.Error(c, http.StatusNotFound, "Anexo não encontrado: "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"anexo": resumo, "ncms": codigos})
}

func primeiroArquivo(form *multipart.Form, campo string) *multipart.FileHeader {
	if headers := form.File[campo]; len(headers) > 0 {
		return headers[0]
	}
	return nil
}

func abrirELer[T any](header *multipart.FileHeader, ler func(multipart.File) (T, error)) (T, error) {
	var zero T
	f, err := header.Open()
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return ler(f)
}
