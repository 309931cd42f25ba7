package observability

// Version is the reported service version. Overridden at build time:
//
//	go build -ldflags "-X github.com/mobelwerk/gatehouse/pkg/observability.Version=$(git describe --tags)"
var Version = "dev"
