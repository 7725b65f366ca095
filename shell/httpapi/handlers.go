package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	s.handleLoan(w, r, s.library.Borrow)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	s.handleLoan(w, r, s.library.Return)
}

func (s *Server) handleLoan(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, command shell.LoanCommand) (shell.Outcome, error),
) {

	var req loanRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error(), s.logger)
		return
	}

	outcome, err := run(r.Context(), shell.LoanCommand{UserID: req.UserID, Title: req.Title, Author: req.Author})
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	writeData(w, http.StatusOK, toOutcomeResponse(outcome), s.logger)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	author := r.URL.Query().Get("author")

	var books []loans.Book
	var err error

	switch {
	case title != "" && author != "":
		var book loans.Book
		book, err = s.library.FindBook(r.Context(), title, author)
		books = []loans.Book{book}
	case author != "":
		books, err = s.library.FindBooksByAuthor(r.Context(), author)
	case title != "":
		books, err = s.library.FindBooksByTitle(r.Context(), title)
	default:
		books, err = s.library.ListBooks(r.Context())
	}

	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	writeData(w, http.StatusOK, toBookResponses(books), s.logger)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req addBookRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error(), s.logger)
		return
	}

	book, err := s.library.AddOrIncreaseBook(r.Context(), loans.NewBook{
		Title:    req.Title,
		Author:   req.Author,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	writeData(w, http.StatusOK, toBookResponse(book), s.logger)
}

func (s *Server) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	err := s.library.RemoveBook(r.Context(), r.URL.Query().Get("title"), r.URL.Query().Get("author"))
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.library.ListUsers(r.Context())
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user, nil))
	}

	writeData(w, http.StatusOK, out, s.logger)
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	var req registerUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error(), s.logger)
		return
	}

	user, err := s.library.RegisterUser(r.Context(), loans.NewUser{ID: userID, Name: req.Name, BorrowLimit: req.BorrowLimit})
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	writeData(w, http.StatusOK, toUserResponse(user, nil), s.logger)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.library.FindUser(r.Context(), userID)
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	writeData(w, http.StatusOK, toUserResponse(user.User, user.ActiveLoans), s.logger)
}

func (s *Server) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		writeBadRequest(w, "user id must be a positive integer", s.logger)
		return 0, false
	}

	return userID, true
}
