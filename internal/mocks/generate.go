// Package mocks provides gomock implementations of the service ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	idp := mocks.NewMockIdentityProvider(ctrl)
//	idp.EXPECT().GetUser(gomock.Any(), "user_1").Return(user, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/sponsorlink/sponsorlink-web/internal/ports IdentityProvider

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=code_sender_mock.go github.com/sponsorlink/sponsorlink-web/internal/ports CodeSender

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/sponsorlink/sponsorlink-web/internal/ports SessionStore
