package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth *AuthHandler,
	user *UserHandler,
	cred *CredentialHandler,
	share *ShareHandler,
	authMiddleware func(http.Handler) http.Handler,
	mds ...func(next http.Handler) http.Handler,
) http.Handler {
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", auth.register)
	mux.HandleFunc("POST /auth/login", auth.login)
	mux.HandleFunc("POST /auth/refresh", auth.refresh)
	mux.HandleFunc("POST /auth/logout", auth.logout)
	mux.HandleFunc("GET /auth/validate", auth.validate)

	mux.Handle("GET /user/me", withAuth(user.me))
	mux.Handle("POST /user/pin", withAuth(user.setPin))

	mux.Handle("POST /credentials", withAuth(cred.create))
	mux.Handle("GET /credentials", withAuth(cred.list))
	mux.Handle("GET /credentials/{id}", withAuth(cred.get))
	mux.Handle("PUT /credentials/{id}", withAuth(cred.update))
	mux.Handle("DELETE /credentials/{id}", withAuth(cred.delete))
	mux.Handle("POST /credentials/{id}/reveal", withAuth(cred.reveal))

	mux.Handle("POST /categories", withAuth(cred.createCategory))
	mux.Handle("GET /categories", withAuth(cred.listCategories))
	mux.Handle("DELETE /categories/{id}", withAuth(cred.deleteCategory))

	mux.Handle("POST /shares", withAuth(share.create))
	mux.Handle("POST /shares/{id}/accept", withAuth(share.accept))
	mux.Handle("DELETE /shares/{id}", withAuth(share.revoke))
	mux.Handle("GET /shares/outgoing", withAuth(share.listOutgoing))
	mux.Handle("GET /shares/incoming", withAuth(share.listIncoming))
	mux.Handle("GET /shares/active/count", withAuth(share.countActive))

	return chain(mux, mds...)
}
