package refs

type builtin struct {
	key  string
	info string
	args int
	ctx  Context
}

var catalog = []builtin{
	{"abstract", "Abstract of the document.", 1, ContextNormal},
	{"addcontentsline", "Adds an entry to a table of contents: file, level, text.", 3, ContextNormal},
	{"addbibresource", "Adds a bibliography resource (biblatex).", 1, ContextPreamble},
	{"alph", "Value of a counter as a lowercase letter.", 1, ContextNormal},
	{"Alph", "Value of a counter as an uppercase letter.", 1, ContextNormal},
	{"appendix", "Switches sectioning numbering to appendix style.", 0, ContextNormal},
	{"arabic", "Value of a counter in arabic numerals.", 1, ContextNormal},
	{"author", "Author names used by \\maketitle.", 1, ContextPreamble},
	{"author", "Author names used by \\maketitle.", 1, ContextNormal},
	{"backslash", "A backslash symbol.", 0, ContextMath},
	{"bf", "Bold font switch.", 0, ContextNormal},
	{"bibitem", "Entry of a thebibliography environment.", 2, ContextNormal},
	{"bibliography", "Bibliography from the given .bib files, comma separated.", 1, ContextNormal},
	{"bibliographystyle", "BibTeX style of the bibliography.", 1, ContextNormal},
	{"bigskip", "Large vertical skip.", 0, ContextNormal},
	{"caption", "Caption of a figure or table.", 1, ContextNormal},
	{"cdots", "Centered ellipsis.", 0, ContextMath},
	{"centering", "Centers the following content of the enclosing group.", 0, ContextNormal},
	{"chapter", "Chapter heading. The starred form has no contents entry.", 1, ContextNormal},
	{"cite", "Citation of one or more bibliography keys.", 1, ContextNormal},
	{"date", "Date used by \\maketitle.", 1, ContextPreamble},
	{"documentclass", "Class of the document.", 1, ContextPreamble},
	{"emph", "Emphasized text.", 1, ContextNormal},
	{"ensuremath", "Typesets the argument in math mode.", 1, ContextNormal},
	{"eqref", "Reference to an equation label in parentheses.", 1, ContextNormal},
	{"footnote", "Footnote text.", 1, ContextNormal},
	{"frac", "Fraction: numerator, denominator.", 2, ContextMath},
	{"hline", "Horizontal rule in a tabular.", 0, ContextNormal},
	{"include", "Includes a file on a new page.", 1, ContextNormal},
	{"includegraphics", "Includes an image file.", 1, ContextNormal},
	{"index", "Adds an index entry.", 1, ContextNormal},
	{"input", "Reads a file in place.", 1, ContextNormal},
	{"item", "Item of a list.", 0, ContextNormal},
	{"label", "Declares a label for cross referencing.", 1, ContextNormal},
	{"label", "Declares a label for cross referencing.", 1, ContextMath},
	{"ldots", "Baseline ellipsis.", 0, ContextNormal},
	{"ldots", "Baseline ellipsis.", 0, ContextMath},
	{"maketitle", "Typesets the title block.", 0, ContextNormal},
	{"mathbb", "Blackboard bold letters.", 1, ContextMath},
	{"mathrm", "Upright letters in math.", 1, ContextMath},
	{"newcommand", "Defines a command: name, optional argument count, definition.", 2, ContextPreamble},
	{"newcommand", "Defines a command: name, optional argument count, definition.", 2, ContextNormal},
	{"newpage", "Ends the current page.", 0, ContextNormal},
	{"nocite", "Adds keys to the bibliography without citing them.", 1, ContextNormal},
	{"noindent", "Suppresses paragraph indentation.", 0, ContextNormal},
	{"overbrace", "Brace above an expression.", 1, ContextMath},
	{"pageref", "Page of a label.", 1, ContextNormal},
	{"paragraph", "Paragraph heading.", 1, ContextNormal},
	{"part", "Part heading.", 1, ContextNormal},
	{"printindex", "Typesets the index.", 0, ContextNormal},
	{"providecommand", "Defines a command unless it exists.", 2, ContextPreamble},
	{"ref", "Number of a label.", 1, ContextNormal},
	{"ref", "Number of a label.", 1, ContextMath},
	{"renewcommand", "Redefines an existing command.", 2, ContextPreamble},
	{"renewcommand", "Redefines an existing command.", 2, ContextNormal},
	{"section", "Section heading.", 1, ContextNormal},
	{"sqrt", "Square root.", 1, ContextMath},
	{"subparagraph", "Subparagraph heading.", 1, ContextNormal},
	{"subsection", "Subsection heading.", 1, ContextNormal},
	{"subsubsection", "Subsubsection heading.", 1, ContextNormal},
	{"tableofcontents", "Typesets the table of contents.", 0, ContextNormal},
	{"text", "Text inside math.", 1, ContextMath},
	{"textbf", "Bold text.", 1, ContextNormal},
	{"textit", "Italic text.", 1, ContextNormal},
	{"texttt", "Typewriter text.", 1, ContextNormal},
	{"title", "Title used by \\maketitle.", 1, ContextPreamble},
	{"today", "Current date.", 0, ContextNormal},
	{"underbrace", "Brace below an expression.", 1, ContextMath},
	{"underline", "Underlined text.", 1, ContextNormal},
	{"usepackage", "Loads a package.", 1, ContextPreamble},
	{"verb", "Inline verbatim text between two delimiters.", 1, ContextNormal},
	{"vspace", "Vertical space of the given length.", 1, ContextNormal},
}

// BuiltIn returns a fresh copy of the built-in command catalog.
func BuiltIn() []CommandEntry {
	cmds := make([]CommandEntry, len(catalog))
	for i, b := range catalog {
		params := make([]ParamKind, b.args)
		for j := range params {
			params[j] = Mandatory
		}
		cmds[i] = CommandEntry{
			Key:       b.key,
			Info:      b.info,
			Arguments: b.args,
			Params:    params,
			Context:   b.ctx,
		}
	}
	return cmds
}
