package completion

// shellKeywords are the reserved words listed by -A keyword.
var shellKeywords = []string{
	"!", "[[", "]]", "case", "coproc", "do", "done", "elif", "else", "esac",
	"fi", "for", "function", "if", "in", "select", "then", "time", "until",
	"while", "{", "}",
}

// shellBuiltins is the bash builtin table. Which of these are enabled depends
// on the interpreter hosting the shell.
var shellBuiltins = []string{
	".", ":", "[", "alias", "bg", "bind", "break", "builtin", "caller", "cd",
	"command", "compgen", "complete", "compopt", "continue", "declare",
	"dirs", "disown", "echo", "enable", "eval", "exec", "exit", "export",
	"false", "fc", "fg", "getopts", "hash", "help", "history", "jobs", "kill",
	"let", "local", "logout", "mapfile", "popd", "printf", "pushd", "pwd",
	"read", "readarray", "readonly", "return", "set", "shift", "shopt",
	"source", "suspend", "test", "times", "trap", "true", "type", "typeset",
	"ulimit", "umask", "unalias", "unset", "wait",
}

// setOptions are the names accepted by set -o.
var setOptions = []string{
	"allexport", "braceexpand", "emacs", "errexit", "errtrace", "functrace",
	"hashall", "histexpand", "history", "ignoreeof", "interactive-comments",
	"keyword", "monitor", "noclobber", "noexec", "noglob", "nolog", "notify",
	"nounset", "onecmd", "physical", "pipefail", "posix", "privileged",
	"verbose", "vi", "xtrace",
}

// shoptOptions are the names accepted by shopt.
var shoptOptions = []string{
	"autocd", "cdable_vars", "cdspell", "checkhash", "checkjobs",
	"checkwinsize", "cmdhist", "compat31", "compat32", "compat40",
	"compat41", "compat42", "compat43", "compat44", "complete_fullquote",
	"direxpand", "dirspell", "dotglob", "execfail", "expand_aliases",
	"extdebug", "extglob", "extquote", "failglob", "force_fignore",
	"globasciiranges", "globstar", "gnu_errfmt", "histappend", "histreedit",
	"histverify", "hostcomplete", "huponexit", "inherit_errexit",
	"interactive_comments", "lastpipe", "lithist", "localvar_inherit",
	"localvar_unset", "login_shell", "mailwarn", "no_empty_cmd_completion",
	"nocaseglob", "nocasematch", "nullglob", "progcomp", "progcomp_alias",
	"promptvars", "restricted_shell", "shift_verbose", "sourcepath",
	"xpg_echo",
}

// readlineBindings are the line-editor function names listed by -A binding.
var readlineBindings = []string{
	"abort", "accept-line", "backward-char", "backward-delete-char",
	"backward-kill-line", "backward-kill-word", "backward-word",
	"beginning-of-history", "beginning-of-line", "capitalize-word",
	"clear-screen", "complete", "delete-char", "delete-horizontal-space",
	"downcase-word", "end-of-history", "end-of-line", "exchange-point-and-mark",
	"forward-char", "forward-search-history", "forward-word",
	"history-search-backward", "history-search-forward", "insert-completions",
	"kill-line", "kill-whole-line", "kill-word", "menu-complete",
	"menu-complete-backward", "next-history", "possible-completions",
	"previous-history", "quoted-insert", "redraw-current-line",
	"reverse-search-history", "self-insert", "set-mark", "tab-insert",
	"transpose-chars", "transpose-words", "undo", "unix-line-discard",
	"unix-word-rubout", "upcase-word", "yank", "yank-last-arg", "yank-nth-arg",
	"yank-pop",
}
