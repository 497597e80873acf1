package analysis

const sampleTests = `import pytest

def test_add():
    result = add(1, 2)
    assert result == 3
    assert result == 3  # again

def test_nothing():
    x = 1

class TestCalc:
    def setup_method(self):
        self.c = Calc()

    def test_raises(self):
        with pytest.raises(ValueError):
            self.c.div(1, 0)

    def test_equal(self):
        self.assertEqual(self.c.add(1, 1), 2)

def helper():
    assert False
`

func sampleFile() File {
	return File{Path: "tests/test_calc.py", Content: sampleTests}
}
