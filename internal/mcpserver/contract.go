package mcpserver

import "fmt"

// InputContract describes the house record every prediction tool accepts.
// maxYear is the reference year of the loaded model.
func InputContract(maxYear int) string {
	return fmt.Sprintf(`# House Input Contract

Every house passed to a prediction tool MUST carry these seven attributes.

| field                   | type    | accepted range      |
|-------------------------|---------|---------------------|
| square_footage          | number  | > 0                 |
| bedrooms                | integer | 1 to 10             |
| bathrooms               | number  | 1 to 10             |
| year_built              | integer | 1900 to %d        |
| lot_size                | number  | > 0                 |
| distance_to_city_center | number  | >= 0                |
| school_rating           | number  | 0 to 10             |

## Rules

1. All fields are required. A missing field fails the request.
2. bedrooms and year_built must be whole numbers.
3. Predictions are whole currency units, rounded half away from zero.
4. A batch fails as a whole when any house is invalid; the error names the
   1-based position of the first bad house.
5. Files given to predict_file must be .csv or .xlsx with a header row. Extra
   columns are kept; an id column is added when absent and predicted_price
   is appended.

## Example

`+"```"+`json
{"square_footage": 1850, "bedrooms": 3, "bathrooms": 2, "year_built": 2000,
 "lot_size": 7500, "distance_to_city_center": 5.5, "school_rating": 8.2}
`+"```"+`
`, maxYear)
}
