// internal/core/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/iterator"
)

var (
	ErrCredenciaisInvalidas = errors.New("usuário ou senha inválidos")
	ErrUsuarioNaoEncontrado = errors.New("usuário não encontrado")
)

// PermissaoClassificacao libera o envio de XMLs para classificação.
const PermissaoClassificacao = "classificacao"

type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// User representa a estrutura de um usuário no Firestore.
type User struct {
	Username     string   `firestore:"username"`
	PasswordHash string   `firestore:"passwordHash"`
	Roles        []string `firestore:"roles"`
}

// Usuarios é a origem dos cadastros.
type Usuarios interface {
	BuscarPorUsername(ctx context.Context, username string) (User, error)
}

type firestoreUsuarios struct {
	db      *firestore.Client
	colecao string
}

// NovoRepositorioFirestore lê usuários da coleção informada ("users" se vazia).
func NovoRepositorioFirestore(db *firestore.Client, colecao string) Usuarios {
	if colecao == "" {
		colecao = "users"
	}
	return &firestoreUsuarios{db: db, colecao: colecao}
}

func (f *firestoreUsuarios) BuscarPorUsername(ctx context.Context, username string) (User, error) {
	query := f.db.Collection(f.colecao).Where("username", "==", username).Limit(1).Documents(ctx)
	defer query.Stop()

	doc, err := query.Next()
	if err == iterator.Done {
		return User{}, ErrUsuarioNaoEncontrado
	}
	if err != nil {
		return User{}, fmt.Errorf("erro ao consultar o banco de dados: %w", err)
	}

	var user User
	if err := doc.DataTo(&user); err != nil {
		return User{}, fmt.Errorf("erro ao ler dados do usuário: %w", err)
	}
	return user, nil
}

type service struct {
	usuarios Usuarios
	secret   []byte
	validade time.Duration
	logger   *zap.Logger
}

// NewService cria o serviço de login. Tokens são HS256 assinados com secret.
func NewService(usuarios Usuarios, secret []byte, validade time.Duration, logger *zap.Logger) Service {
	if validade <= 0 {
		validade = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{usuarios: usuarios, secret: secret, validade: validade, logger: logger}
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.usuarios.BuscarPorUsername(ctx, username)
	if errors.Is(err, ErrUsuarioNaoEncontrado) {
		return "", ErrCredenciaisInvalidas
	}
	if err != nil {
		s.logger.Error("falha ao buscar usuário", zap.String("username", username), zap.Error(err))
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrCredenciaisInvalidas
	}

	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"roles":    user.Roles,
		"exp":      time.Now().Add(s.validade).Unix(),
	})
	tokenString, err := claims.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("erro ao gerar token de acesso: %w", err)
	}
	return tokenString, nil
}
