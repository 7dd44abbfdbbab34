package secmap_test

import (
	"fmt"
	"time"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

type exampleListener struct {
	secmap.Base
	Addr    string        `secmap:"addr"`
	Timeout time.Duration `secmap:"timeout"`
}

func (l *exampleListener) Construct(env *secmap.Env, sink secmap.Sink) {
	l.Base.Construct(env, sink)
	l.Timeout = 15 * time.Second
}

type exampleConfig struct {
	secmap.Base
	Listeners secmap.Ordered[string, exampleListener] `secmap:"listeners"`
}

func Example_bind() {
	doc, _ := store.Parse([]byte(`
listeners:
  public: {addr: ":80", timeout: 5s}
  admin: {addr: "127.0.0.1:9000"}
`))

	cfg, err := secmap.Bind[exampleConfig](secmap.New(doc), "")
	if err != nil {
		fmt.Println(err)

		return
	}

	for name, l := range cfg.Listeners.All() {
		fmt.Printf("%s %s %s\n", name, l.Addr, l.Timeout)
	}
	// Output:
	// public :80 5s
	// admin 127.0.0.1:9000 15s
}

func Example_mappingError() {
	doc, _ := store.Parse([]byte("listeners:\n  public: {timeout: soon}\n"))

	_, err := secmap.Bind[exampleConfig](secmap.New(doc), "")
	fmt.Println(err)
	// Output:
	// cannot convert "soon" to time.Duration (at path 'timeout') (at value for key=public of a map) (at path 'listeners')
}
