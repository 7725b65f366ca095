package loans

import (
	"context"
)

// Service is the Loan Engine boundary. Each call runs as one atomic transaction and
// returns nil, a rule violation, ErrRaceLost, or an error wrapping ErrTransactionFailed.
type Service interface {
	Borrow(ctx context.Context, userID int64, title, author string) error
	Return(ctx context.Context, userID int64, title, author string) error
}

// Catalog is the Catalog Repository boundary used by the outer shells.
// It manages quantity, title, author, name and borrow_limit but never availability
// or total_borrowed directly.
type Catalog interface {
	AddOrIncreaseBook(ctx context.Context, book NewBook) (Book, error)
	RemoveBook(ctx context.Context, title, author string) error
	RegisterUser(ctx context.Context, user NewUser) (User, error)
	ListBooks(ctx context.Context) ([]Book, error)
	ListUsers(ctx context.Context) ([]User, error)
	FindUser(ctx context.Context, userID int64) (UserWithLoans, error)
	FindBook(ctx context.Context, title, author string) (Book, error)
	FindBooksByAuthor(ctx context.Context, author string) ([]Book, error)
	FindBooksByTitle(ctx context.Context, title string) ([]Book, error)
}
