//go:build generate

package mockhoma

//go:generate go run go.uber.org/mock/mockgen -package mockhoma -destination transmitter.go github.com/homa-go/homa IPTransmitter
