package sakura_test

import (
	"fmt"

	"github.com/aretw0/sakura"
	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/dsl"
)

func Example() {
	ws, err := sakura.New()
	if err != nil {
		panic(err)
	}

	ws.ParseChunk(`Sure! <boltArtifact id="demo" title="Demo">`)
	ws.ParseChunk(`<boltAction type="file" filePath="src/main.ts">console.log(1)</boltA`)
	ws.ParseChunk(`ction><boltAction type="shell">npm install chalk</boltAction></boltArtifact>`)

	f, _ := ws.FS().GetFile("src/main.ts")
	fmt.Println(ws.FS().ProjectTitle())
	fmt.Println(f.Content, f.IsComplete)
	fmt.Println(ws.FS().Dependencies())
	fmt.Println(ws.Artifact().IsComplete)

	// Output:
	// Demo
	// console.log(1) true
	// [chalk]
	// true
}

func ExampleWorkspace_Subscribe() {
	ws, err := sakura.New()
	if err != nil {
		panic(err)
	}

	ws.Subscribe(func(art *domain.Artifact) {
		if art == nil {
			fmt.Println("reset")
			return
		}
		fmt.Printf("%s files=%d writing=%q\n", art.ID, art.Files.Len(), art.CurrentFile)
	})

	b := dsl.New("demo", "Demo")
	b.File("a.ts").Content("1")
	ws.ParseFullContent(b.MustBuild())
	ws.Reset()

	// Output:
	// demo files=1 writing=""
	// reset
}
