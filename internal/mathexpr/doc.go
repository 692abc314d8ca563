// Package mathexpr compiles and evaluates scalar math expressions such as
// kinetic laws and analytic concentrations.
//
// Expressions use the expr language with a numeric function library:
// exp, log (natural), ln, log10, sqrt, pow, the trigonometric and
// hyperbolic functions, and the builtins abs, min, max, floor, ceil and
// round. Both ^ and ** denote exponentiation. The constant pi is always
// defined.
//
// Identifiers must be declared when compiling; an expression that refers
// to an unknown name is rejected before it can be evaluated.
package mathexpr
