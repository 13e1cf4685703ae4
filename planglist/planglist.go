package planglist

import "fmt"

// ProgrLang is a language a judge worker knows how to build and run.
type ProgrLang struct {
	ID           string
	FullName     string
	CodeFilename string
	CompileCmd   *string
	ExecuteCmd   string
	Enabled      bool
}

// GetProgrLangById returns the enabled language with the given id.
func GetProgrLangById(id string) (ProgrLang, error) {
	for _, l := range languages {
		if l.ID == id && l.Enabled {
			return l, nil
		}
	}
	return ProgrLang{}, ErrInvalidProgLang().SetDebug(fmt.Errorf("unknown language %q", id))
}

func ListProgrLangs() []ProgrLang {
	res := make([]ProgrLang, 0, len(languages))
	for _, l := range languages {
		if l.Enabled {
			res = append(res, l)
		}
	}
	return res
}

var languages = []ProgrLang{
	{
		ID:           "c",
		FullName:     "C11 (GCC)",
		CodeFilename: "main.c",
		CompileCmd:   strPtr("gcc -std=c11 -O2 -o main main.c -lm"),
		ExecuteCmd:   "./main",
		Enabled:      true,
	},
	{
		ID:           "cc",
		FullName:     "C++17 (GCC)",
		CodeFilename: "main.cpp",
		CompileCmd:   strPtr("g++ -std=c++17 -O2 -o main main.cpp"),
		ExecuteCmd:   "./main",
		Enabled:      true,
	},
	{
		ID:           "java",
		FullName:     "Java SE 21",
		CodeFilename: "Main.java",
		CompileCmd:   strPtr("javac Main.java"),
		ExecuteCmd:   "java -Xss64M -Xmx1024M -XX:+UseSerialGC Main",
		Enabled:      true,
	},
	{
		ID:           "py3",
		FullName:     "Python 3.11",
		CodeFilename: "main.py",
		ExecuteCmd:   "python3.11 main.py",
		Enabled:      true,
	},
	{
		ID:           "go",
		FullName:     "Go 1.21",
		CodeFilename: "main.go",
		CompileCmd:   strPtr("go build main.go"),
		ExecuteCmd:   "./main",
		Enabled:      true,
	},
	{
		ID:           "pas",
		FullName:     "Free Pascal",
		CodeFilename: "main.pas",
		CompileCmd:   strPtr("fpc -O2 -omain main.pas"),
		ExecuteCmd:   "./main",
		Enabled:      false,
	},
}

func strPtr(s string) *string {
	return &s
}
