// internal/domain/models.go
package domain

// ItemFiscal é a unidade classificada: um item de nota fiscal.
// NCM e CFOP podem chegar com pontos ("1006.30.21", "5.102").
type ItemFiscal struct {
	ChaveNFe    string  `json:"chave_nfe,omitempty"`
	NumNota     string  `json:"num_nota,omitempty"`
	NaturezaOp  string  `json:"natureza_op,omitempty"`
	CodProduto  string  `json:"cod_produto,omitempty"`
	Produto     string  `json:"produto,omitempty"`
	NCM         string  `json:"ncm"`
	CFOP        string  `json:"cfop"`
	Valor       float64 `json:"valor"`
	VICMS       float64 `json:"v_icms"`
	VPIS        float64 `json:"v_pis"`
	VCOFINS     float64 `json:"v_cofins"`
	TipoArquivo string  `json:"tipo_arquivo,omitempty"`
}

// RegraAnexo descreve o tratamento tributário de um anexo da LC 214/2025.
type RegraAnexo struct {
	AnexoID    string `json:"anexo_id"`
	Descricao  string `json:"descricao"`
	CClassTrib string `json:"cclass_trib"`
	// FatorReducao é a fração da alíquota padrão que deixa de ser cobrada:
	// 1.0 = alíquota zero, 0.6 = redução de 60%, 0.0 = sem redução.
	FatorReducao float64 `json:"fator_reducao"`
	CSTPadrao    string  `json:"cst_padrao"`
	Status       string  `json:"status"`
	// CapitulosPermitidos restringe os códigos extraídos do texto legal aos
	// capítulos (2 dígitos) listados. Vazio = sem restrição.
	CapitulosPermitidos []string `json:"capitulos_permitidos,omitempty"`
}

// ResultadoClassificacao é a saída do motor para um item.
type ResultadoClassificacao struct {
	CClassTrib     string  `json:"cclass_trib"`
	Descricao      string  `json:"descricao"`
	Status         string  `json:"status"`
	NovoCST        string  `json:"novo_cst"`
	Origem         string  `json:"origem"`
	ValidacaoTIPI  string  `json:"validacao_tipi"`
	FatorReducao   float64 `json:"fator_reducao"`
	CargaAtual     float64 `json:"carga_atual"`
	CargaProjetada float64 `json:"carga_projetada"`
	VIBS           float64 `json:"v_ibs"`
	VCBS           float64 `json:"v_cbs"`
}

// ItemClassificado junta o item de origem e o resultado da classificação.
type ItemClassificado struct {
	ItemFiscal
	Resultado ResultadoClassificacao `json:"resultado"`
}

// NotaFiscal é o conteúdo relevante de um XML de NF-e.
type NotaFiscal struct {
	Chave      string       `json:"chave"`
	Numero     string       `json:"numero"`
	NaturezaOp string       `json:"natureza_op"`
	Emitente   string       `json:"emitente"`
	Itens      []ItemFiscal `json:"itens"`
}

// StatusCode define um tipo para os códigos de status de arquivo.
type StatusCode int

// O frontend usa esses números para decidir como exibir cada arquivo.
const (
	StatusArquivoProcessado StatusCode = 0
	StatusXMLInvalido       StatusCode = 3 // O arquivo XML não pôde ser lido.
	StatusXMLSemItens       StatusCode = 4
)

// ArquivoProcessado resume o resultado da leitura de um arquivo enviado.
type ArquivoProcessado struct {
	Nome       string     `json:"nome"`
	ChaveNFe   string     `json:"chave_nfe,omitempty"`
	Itens      int        `json:"itens"`
	StatusCode StatusCode `json:"status_code"`
	Erro       string     `json:"erro,omitempty"`
}

// ResumoCarga é o resumo executivo: débitos das saídas, créditos das entradas
// e o saldo de IBS/CBS projetado.
type ResumoCarga struct {
	Debitos          float64        `json:"debitos"`
	Creditos         float64        `json:"creditos"`
	Saldo            float64        `json:"saldo"`
	CargaAtualTotal  float64        `json:"carga_atual_total"`
	ValorTotal       float64        `json:"valor_total"`
	ItensPorStatus   map[string]int `json:"itens_por_status"`
	ItensParaRevisar int            `json:"itens_para_revisar"`
	// ProdutosUnicos conta combinações distintas de NCM, produto e CFOP.
	ProdutosUnicos int `json:"produtos_unicos"`
}

// Relatorio é o resultado completo de uma classificação em lote.
type Relatorio struct {
	ID       string              `json:"id"`
	Empresa  string              `json:"empresa"`
	Arquivos []ArquivoProcessado `json:"arquivos"`
	Vendas   []ItemClassificado  `json:"vendas"`
	Compras  []ItemClassificado  `json:"compras"`
	Outros   []ItemClassificado  `json:"outros,omitempty"`
	Resumo   ResumoCarga         `json:"resumo"`
	// Avisos sobre tabelas enviadas que não puderam ser usadas.
	Avisos []string `json:"avisos,omitempty"`
}
