package common

type Module string

const (
	ModuleStablecoin Module = "stablecoin"
)

func (m Module) String() string {
	return string(m)
}
