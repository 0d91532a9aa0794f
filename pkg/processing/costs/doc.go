// Package costs prices completion exchanges.
//
// Every provider declares a single cost_per_token rate. The cost of an
// exchange is the total token count times that rate. Token counts come from
// the upstream's usage report; when it is missing they are estimated with
// the tokens package.
//
//	calc := costs.NewCalculator(nil)
//	cost := calc.Calculate(0.00001, req, resp)
//	fmt.Printf("$%.6f for %d tokens\n", cost.Amount, cost.Tokens)
package costs
